package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshlab/meshcluster/sched"
)

type inbox struct {
	frames []string
	froms  []Address
}

func (b *inbox) handler(payload []byte, from Address) {
	b.frames = append(b.frames, string(payload))
	b.froms = append(b.froms, from)
}

func attach(t *testing.T, m *Medium, addr Address) (*Port, *inbox) {
	t.Helper()
	p, err := m.Attach(addr)
	require.NoError(t, err)
	box := &inbox{}
	require.NoError(t, p.Start(box.handler))
	return p, box
}

func TestMediumUnicastNeedsLink(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	a, _ := attach(t, m, "a")
	_, boxB := attach(t, m, "b")

	// Not linked yet: the frame is lost on the air, not an error.
	require.NoError(t, a.SendUnicast([]byte("x"), "b"))
	v.Run(1)
	assert.Empty(t, boxB.frames)

	m.Link("a", "b")
	require.NoError(t, a.SendUnicast([]byte("y"), "b"))
	v.Run(2)
	assert.Equal(t, []string{"y"}, boxB.frames)
	assert.Equal(t, []Address{"a"}, boxB.froms)
}

func TestMediumMulticastReachesLinkedPeersOnly(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	a, boxA := attach(t, m, "a")
	_, boxB := attach(t, m, "b")
	_, boxC := attach(t, m, "c")
	_, boxD := attach(t, m, "d")

	m.Link("a", "b")
	m.Link("a", "c")

	require.NoError(t, a.SendMulticast([]byte("hello")))
	v.Run(1)

	assert.Equal(t, []string{"hello"}, boxB.frames)
	assert.Equal(t, []string{"hello"}, boxC.frames)
	assert.Empty(t, boxD.frames, "unlinked peer must not hear the frame")
	assert.Empty(t, boxA.frames, "sender does not hear itself")
}

func TestMediumUnlinkSeversBothDirections(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	a, boxA := attach(t, m, "a")
	b, boxB := attach(t, m, "b")
	m.Link("a", "b")
	m.Unlink("a", "b")

	require.NoError(t, a.SendUnicast([]byte("x"), "b"))
	require.NoError(t, b.SendUnicast([]byte("y"), "a"))
	v.Run(1)

	assert.Empty(t, boxA.frames)
	assert.Empty(t, boxB.frames)
}

func TestMediumLinkAll(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	_, boxA := attach(t, m, "a")
	_, boxB := attach(t, m, "b")
	c, _ := attach(t, m, "c")
	m.LinkAll("c")

	require.NoError(t, c.SendMulticast([]byte("z")))
	v.Run(1)

	assert.Equal(t, []string{"z"}, boxA.frames)
	assert.Equal(t, []string{"z"}, boxB.frames)
}

func TestMediumDeliveryUsesPropagationDelay(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v, WithDelay(0.25))

	a, _ := attach(t, m, "a")
	_, boxB := attach(t, m, "b")
	m.Link("a", "b")

	require.NoError(t, a.SendUnicast([]byte("x"), "b"))

	v.Run(0.2)
	assert.Empty(t, boxB.frames, "frame still in flight")
	v.Run(0.3)
	assert.Equal(t, []string{"x"}, boxB.frames)
}

func TestMediumDetachStopsDelivery(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	a, _ := attach(t, m, "a")
	b, boxB := attach(t, m, "b")
	m.Link("a", "b")

	require.NoError(t, b.Close())
	require.NoError(t, a.SendUnicast([]byte("x"), "b"))
	v.Run(1)
	assert.Empty(t, boxB.frames)

	// The address is free again after detach.
	_, err := m.Attach("b")
	require.NoError(t, err)
}

func TestMediumDuplicateAttachFails(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	_, err := m.Attach("a")
	require.NoError(t, err)
	_, err = m.Attach("a")
	assert.Error(t, err)
}

func TestMediumFullDropRate(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v, WithDrop(100, 7))

	a, _ := attach(t, m, "a")
	_, boxB := attach(t, m, "b")
	m.Link("a", "b")

	for i := 0; i < 20; i++ {
		require.NoError(t, a.SendUnicast([]byte("x"), "b"))
	}
	v.Run(1)
	assert.Empty(t, boxB.frames)
}

func TestMediumSenderPayloadIsolation(t *testing.T) {
	v := sched.NewVirtual()
	m := NewMedium(v)

	a, _ := attach(t, m, "a")
	_, boxB := attach(t, m, "b")
	m.Link("a", "b")

	payload := []byte("abc")
	require.NoError(t, a.SendUnicast(payload, "b"))
	payload[0] = 'z' // sender reuses its buffer before delivery
	v.Run(1)

	require.Len(t, boxB.frames, 1)
	assert.Equal(t, "abc", boxB.frames[0])
}
