package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshlab/meshcluster/cluster"
	"github.com/meshlab/meshcluster/sched"
)

func TestManagerCreateAssignsSequentialIDs(t *testing.T) {
	m := NewManager(sched.NewVirtual(), cluster.DefaultConfig(), 1)
	defer m.StopAll()

	for want := 0; want < 3; want++ {
		r, err := m.CreateNode()
		require.NoError(t, err)
		assert.Equal(t, cluster.NodeID(want), r.ID())
	}

	nodes := m.GetNodes()
	require.Len(t, nodes, 3)
	for i, r := range nodes {
		assert.Equal(t, cluster.NodeID(i), r.ID(), "creation order preserved")
	}
}

func TestManagerDeleteNode(t *testing.T) {
	m := NewManager(sched.NewVirtual(), cluster.DefaultConfig(), 1)
	defer m.StopAll()

	for i := 0; i < 3; i++ {
		_, err := m.CreateNode()
		require.NoError(t, err)
	}

	require.NoError(t, m.DeleteNode(1))

	nodes := m.GetNodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, cluster.NodeID(0), nodes[0].ID())
	assert.Equal(t, cluster.NodeID(2), nodes[1].ID())

	// Ids are never reused.
	r, err := m.CreateNode()
	require.NoError(t, err)
	assert.Equal(t, cluster.NodeID(3), r.ID())
}

func TestManagerDeleteInvalidIndex(t *testing.T) {
	m := NewManager(sched.NewVirtual(), cluster.DefaultConfig(), 1)
	defer m.StopAll()

	assert.Error(t, m.DeleteNode(0))
	assert.Error(t, m.DeleteNode(-1))
}

func TestManagerStopAll(t *testing.T) {
	m := NewManager(sched.NewVirtual(), cluster.DefaultConfig(), 1)
	for i := 0; i < 3; i++ {
		_, err := m.CreateNode()
		require.NoError(t, err)
	}

	require.NoError(t, m.StopAll())
	assert.Empty(t, m.GetNodes())
}

func TestRunnerLifecycle(t *testing.T) {
	v := sched.NewVirtual()
	m := NewManager(v, cluster.DefaultConfig(), 1)
	r, err := m.CreateNode()
	require.NoError(t, err)
	defer m.StopAll()

	assert.Equal(t, ErrAlreadyStarted, r.Start())
	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop(), "stop is idempotent")
}

func TestNewRunnerRejectsNilCollaborators(t *testing.T) {
	_, err := NewRunner(0, cluster.DefaultConfig(), nil, nil, 1)
	assert.ErrorIs(t, err, ErrSchedulerRequired)

	_, err = NewRunner(0, cluster.DefaultConfig(), sched.NewVirtual(), nil, 1)
	assert.ErrorIs(t, err, ErrTransportRequired)
}
