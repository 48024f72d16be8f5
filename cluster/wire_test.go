package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertisementRoundTrip(t *testing.T) {
	in := Advertisement{Sender: 7, Color: 2, Role: RoleGateway, Cluster: 3}

	kind, body, err := DecodeFrame(EncodeAdvertisement(in))
	require.NoError(t, err)
	require.Equal(t, FrameAdvertisement, kind)

	out, err := DecodeAdvertisement(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// The -1 sentinels survive the zigzag encoding.
func TestAdvertisementSentinelFields(t *testing.T) {
	in := Advertisement{Sender: 12, Color: ColorNone, Role: RoleUndecided, Cluster: NodeNone}

	_, body, err := DecodeFrame(EncodeAdvertisement(in))
	require.NoError(t, err)
	out, err := DecodeAdvertisement(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDataUnitRoundTrip(t *testing.T) {
	in := DataUnit{Source: 4, Seq: 99, TTL: 13, Dest: 8, NextHop: 5, Created: 12.75}

	kind, body, err := DecodeFrame(EncodeDataUnit(in))
	require.NoError(t, err)
	require.Equal(t, FrameData, kind)

	out, err := DecodeDataUnit(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDataUnitUnaddressed(t *testing.T) {
	in := DataUnit{Source: 4, Seq: 1, TTL: 16, Dest: 8, NextHop: NodeNone, Created: 0.5}

	_, body, err := DecodeFrame(EncodeDataUnit(in))
	require.NoError(t, err)
	out, err := DecodeDataUnit(body)
	require.NoError(t, err)
	assert.Equal(t, NodeNone, out.NextHop)
}

func TestDataUnitCarriesFiller(t *testing.T) {
	payload := EncodeDataUnit(DataUnit{Source: 1, Seq: 1, TTL: 16, Dest: 2})
	assert.Greater(t, len(payload), DataFillerSize, "filler pads the frame")
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, _, err := DecodeFrame([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestDecodeFrameRejectsUnknownKind(t *testing.T) {
	payload := EncodeAdvertisement(Advertisement{Sender: 1})
	// Envelope kind rides in the first two bytes (tag + varint).
	payload[1] = 0x7f
	_, _, err := DecodeFrame(payload)
	assert.Error(t, err)
}

func TestDecodeFrameRejectsEmpty(t *testing.T) {
	_, _, err := DecodeFrame(nil)
	assert.Error(t, err)
}

func TestDecodeAdvertisementRequiresSender(t *testing.T) {
	_, err := DecodeAdvertisement(nil)
	assert.Error(t, err)
}

func TestDecodeAdvertisementRejectsBadRole(t *testing.T) {
	in := Advertisement{Sender: 3, Color: 1, Role: RoleMember, Cluster: 2}
	payload := EncodeAdvertisement(in)
	_, body, err := DecodeFrame(payload)
	require.NoError(t, err)

	// Corrupt the role field in place: find the varint after the role
	// tag and bump it out of range.
	corrupted := append([]byte(nil), body...)
	for i := 0; i+1 < len(corrupted); i++ {
		if corrupted[i] == 0x18 { // field 3, varint
			corrupted[i+1] = 0x09
			break
		}
	}
	_, err = DecodeAdvertisement(corrupted)
	assert.Error(t, err)
}

func TestDecodeDataUnitRequiresSourceAndDest(t *testing.T) {
	payload := EncodeDataUnit(DataUnit{Source: 1, Seq: 1, TTL: 16, Dest: NodeNone})
	_, body, err := DecodeFrame(payload)
	require.NoError(t, err)
	_, err = DecodeDataUnit(body)
	assert.Error(t, err)
}

func TestDecodeDataUnitTruncated(t *testing.T) {
	payload := EncodeDataUnit(DataUnit{Source: 1, Seq: 1, TTL: 16, Dest: 2})
	_, body, err := DecodeFrame(payload)
	require.NoError(t, err)
	_, err = DecodeDataUnit(body[:len(body)-DataFillerSize/2])
	assert.Error(t, err)
}
