package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshlab/meshcluster/sched"
)

func newStartedNode(t *testing.T, id NodeID, cfg Config) (*Node, *sched.Virtual, *fakeRadio) {
	t.Helper()
	v := sched.NewVirtual()
	radio := &fakeRadio{addr: peerAddr(id)}
	n, err := NewNode(id, cfg, v, radio, rand.New(rand.NewSource(int64(id)+1)), nil, nil)
	require.NoError(t, err)
	n.Start()
	return n, v, radio
}

func decodeAdv(t *testing.T, payload []byte) Advertisement {
	t.Helper()
	kind, body, err := DecodeFrame(payload)
	require.NoError(t, err)
	require.Equal(t, FrameAdvertisement, kind)
	adv, err := DecodeAdvertisement(body)
	require.NoError(t, err)
	return adv
}

func TestNewNodeRejectsBadInput(t *testing.T) {
	v := sched.NewVirtual()
	radio := &fakeRadio{addr: "node-0"}

	_, err := NewNode(-1, DefaultConfig(), v, radio, rand.New(rand.NewSource(1)), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidNodeID)

	cfg := DefaultConfig()
	cfg.InitialTTL = 0
	_, err = NewNode(0, cfg, v, radio, rand.New(rand.NewSource(1)), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestNodeBeaconsWithinOneInterval(t *testing.T) {
	n, v, radio := newStartedNode(t, 3, DefaultConfig())
	defer n.Stop()

	v.Run(DefaultHelloInterval)

	require.NotEmpty(t, radio.multicasts)
	adv := decodeAdv(t, radio.multicasts[0])
	assert.Equal(t, NodeID(3), adv.Sender)
}

func TestIsolatedNodeBecomesHead(t *testing.T) {
	n, v, _ := newStartedNode(t, 3, DefaultConfig())
	defer n.Stop()

	v.Run(5)

	assert.Equal(t, ColorHead, n.Color())
	assert.Equal(t, RoleClusterHead, n.Role())
	assert.Equal(t, NodeID(3), n.Cluster())
}

func TestNodeIgnoresOwnEchoedBeacon(t *testing.T) {
	n, _, _ := newStartedNode(t, 3, DefaultConfig())
	defer n.Stop()

	adv := Advertisement{Sender: 3, Color: 0, Role: RoleClusterHead, Cluster: 3}
	n.OnMessage(EncodeAdvertisement(adv), peerAddr(3))

	assert.Empty(t, n.Snapshot().Neighbors)
}

func TestNodeTracksAdvertisedNeighbors(t *testing.T) {
	n, v, _ := newStartedNode(t, 5, DefaultConfig())
	defer n.Stop()

	adv := Advertisement{Sender: 2, Color: 0, Role: RoleClusterHead, Cluster: 2}
	n.OnMessage(EncodeAdvertisement(adv), peerAddr(2))
	v.Run(1) // past the initial coloring pass, before staleness kicks in

	snap := n.Snapshot()
	assert.Equal(t, []NodeID{2}, snap.Neighbors)
	assert.Equal(t, RoleMember, n.Role())
	assert.Equal(t, NodeID(2), n.Cluster())
	assert.Greater(t, int(n.Color()), 0, "member holds a non-head color")
}

// A head that loses its color mid-cycle demotes its members on the
// very next beacon, before any maintenance pass runs.
func TestNodeDemotesWhenHeadStepsDown(t *testing.T) {
	n, v, _ := newStartedNode(t, 5, DefaultConfig())
	defer n.Stop()

	n.OnMessage(EncodeAdvertisement(Advertisement{Sender: 2, Color: 0, Role: RoleClusterHead, Cluster: 2}), peerAddr(2))
	v.Run(1)
	require.Equal(t, RoleMember, n.Role())

	// The head lost a tie-break somewhere and recolored to 3.
	n.OnMessage(EncodeAdvertisement(Advertisement{Sender: 2, Color: 3, Role: RoleMember, Cluster: 1}), peerAddr(2))

	assert.Equal(t, RoleUndecided, n.Role())
	assert.Equal(t, ColorNone, n.Color())
	assert.Equal(t, NodeNone, n.Cluster())
}

func TestNodeEvictsSilentNeighbors(t *testing.T) {
	cfg := DefaultConfig()
	n, v, _ := newStartedNode(t, 5, cfg)
	defer n.Stop()

	n.OnMessage(EncodeAdvertisement(Advertisement{Sender: 2, Color: 0, Role: RoleClusterHead, Cluster: 2}), peerAddr(2))
	require.Len(t, n.Snapshot().Neighbors, 1)

	// Node 2 goes silent; after the timeout a maintenance pass evicts
	// it and the coloring heals: alone again, claim the head color.
	v.Run(cfg.NeighborTimeout + 2*cfg.MaintenanceInterval)

	assert.Empty(t, n.Snapshot().Neighbors)
	assert.Equal(t, RoleClusterHead, n.Role())
}

func TestNodeStopSilencesTimers(t *testing.T) {
	n, v, radio := newStartedNode(t, 3, DefaultConfig())

	v.Run(1)
	n.Stop()
	sent := len(radio.multicasts)

	v.Run(20)
	assert.Equal(t, sent, len(radio.multicasts))
}

func TestNodeStartIsIdempotent(t *testing.T) {
	n, v, radio := newStartedNode(t, 3, DefaultConfig())
	defer n.Stop()

	n.Start()
	n.Start()
	v.Run(DefaultHelloInterval)

	// One hello timer, not three.
	assert.LessOrEqual(t, len(radio.multicasts), 2)
}

func TestNodeIgnoresMalformedFrames(t *testing.T) {
	n, _, _ := newStartedNode(t, 3, DefaultConfig())
	defer n.Stop()

	n.OnMessage([]byte{0xde, 0xad, 0xbe, 0xef}, peerAddr(9))
	n.OnMessage(nil, peerAddr(9))

	assert.Empty(t, n.Snapshot().Neighbors)
}

func TestNodeSyntheticTraffic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataInterval = 1.0
	n, v, radio := newStartedNode(t, 5, cfg)
	defer n.Stop()

	// A head with one member neighbor generates traffic toward it.
	n.OnMessage(EncodeAdvertisement(Advertisement{Sender: 7, Color: 1, Role: RoleMember, Cluster: 5}), peerAddr(7))
	v.Run(10)

	require.Equal(t, RoleClusterHead, n.Role())
	var dataSent int
	for _, sent := range radio.unicasts {
		unit := decodeUnit(t, sent.payload)
		assert.Equal(t, NodeID(7), unit.Dest)
		dataSent++
	}
	assert.Greater(t, dataSent, 0)
}

func TestNodeSnapshotShape(t *testing.T) {
	n, v, _ := newStartedNode(t, 5, DefaultConfig())
	defer n.Stop()

	n.OnMessage(EncodeAdvertisement(Advertisement{Sender: 2, Color: 0, Role: RoleClusterHead, Cluster: 2}), peerAddr(2))
	v.Run(1)

	snap := n.Snapshot()
	assert.Equal(t, NodeID(5), snap.ID)
	assert.Equal(t, RoleMember.String(), snap.Role)
	assert.Equal(t, NodeID(2), snap.Cluster)
	assert.Equal(t, []NodeID{2}, snap.Neighbors)
}
