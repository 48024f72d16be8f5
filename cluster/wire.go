package cluster

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire format: two fixed message shapes framed with protobuf wire
// primitives. The envelope is field 1 = kind (varint), field 2 = body
// (bytes). Ids and colors ride as zigzag varints so the -1 sentinels
// stay one byte. Both messages carry a filler field so the transport
// never sees an empty body (1 byte for advertisements, 100 bytes for
// data units, mimicking a real application payload).

// FrameKind tags the two wire message variants.
type FrameKind uint8

const (
	FrameAdvertisement FrameKind = 1
	FrameData          FrameKind = 2
)

const (
	envKind = 1
	envBody = 2
)

const (
	advSender  = 1
	advColor   = 2
	advRole    = 3
	advCluster = 4
	advFiller  = 5
)

const (
	dataSource  = 1
	dataSeq     = 2
	dataTTL     = 3
	dataDest    = 4
	dataNextHop = 5
	dataCreated = 6
	dataFiller  = 7
)

// AdvFillerSize and DataFillerSize pad the wire messages.
const (
	AdvFillerSize  = 1
	DataFillerSize = 100
)

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func frame(kind FrameKind, body []byte) []byte {
	out := protowire.AppendTag(nil, envKind, protowire.VarintType)
	out = protowire.AppendVarint(out, uint64(kind))
	out = protowire.AppendTag(out, envBody, protowire.BytesType)
	return protowire.AppendBytes(out, body)
}

// EncodeAdvertisement frames a beacon for the wire.
func EncodeAdvertisement(a Advertisement) []byte {
	body := appendSint(nil, advSender, int64(a.Sender))
	body = appendSint(body, advColor, int64(a.Color))
	body = protowire.AppendTag(body, advRole, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(a.Role))
	body = appendSint(body, advCluster, int64(a.Cluster))
	body = protowire.AppendTag(body, advFiller, protowire.BytesType)
	body = protowire.AppendBytes(body, make([]byte, AdvFillerSize))
	return frame(FrameAdvertisement, body)
}

// EncodeDataUnit frames a data unit for the wire.
func EncodeDataUnit(u DataUnit) []byte {
	body := appendSint(nil, dataSource, int64(u.Source))
	body = protowire.AppendTag(body, dataSeq, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(u.Seq))
	body = appendSint(body, dataTTL, int64(u.TTL))
	body = appendSint(body, dataDest, int64(u.Dest))
	body = appendSint(body, dataNextHop, int64(u.NextHop))
	body = protowire.AppendTag(body, dataCreated, protowire.Fixed64Type)
	body = protowire.AppendFixed64(body, math.Float64bits(u.Created))
	body = protowire.AppendTag(body, dataFiller, protowire.BytesType)
	body = protowire.AppendBytes(body, make([]byte, DataFillerSize))
	return frame(FrameData, body)
}

// DecodeFrame splits an inbound payload into kind and body.
func DecodeFrame(payload []byte) (FrameKind, []byte, error) {
	var kind FrameKind
	var body []byte
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return 0, nil, fmt.Errorf("malformed frame tag: %w", protowire.ParseError(n))
		}
		payload = payload[n:]
		switch {
		case num == envKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(payload)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			kind = FrameKind(v)
			payload = payload[n:]
		case num == envBody && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			body = b
			payload = payload[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, payload)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			payload = payload[n:]
		}
	}
	if kind != FrameAdvertisement && kind != FrameData {
		return 0, nil, fmt.Errorf("unknown frame kind %d", kind)
	}
	return kind, body, nil
}

// DecodeAdvertisement parses a beacon body.
func DecodeAdvertisement(body []byte) (Advertisement, error) {
	adv := Advertisement{Sender: NodeNone, Color: ColorNone, Cluster: NodeNone}
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return adv, protowire.ParseError(n)
		}
		body = body[n:]
		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return adv, protowire.ParseError(n)
			}
			body = body[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(body)
		if n < 0 {
			return adv, protowire.ParseError(n)
		}
		body = body[n:]
		switch num {
		case advSender:
			adv.Sender = NodeID(protowire.DecodeZigZag(v))
		case advColor:
			adv.Color = Color(protowire.DecodeZigZag(v))
		case advRole:
			if !validRole(v) {
				return adv, fmt.Errorf("invalid role value %d", v)
			}
			adv.Role = Role(v)
		case advCluster:
			adv.Cluster = NodeID(protowire.DecodeZigZag(v))
		}
	}
	if adv.Sender == NodeNone {
		return adv, fmt.Errorf("advertisement missing sender")
	}
	return adv, nil
}

// DecodeDataUnit parses a data unit body.
func DecodeDataUnit(body []byte) (DataUnit, error) {
	unit := DataUnit{Source: NodeNone, Dest: NodeNone, NextHop: NodeNone}
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return unit, protowire.ParseError(n)
		}
		body = body[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(body)
			if n < 0 {
				return unit, protowire.ParseError(n)
			}
			body = body[n:]
			switch num {
			case dataSource:
				unit.Source = NodeID(protowire.DecodeZigZag(v))
			case dataSeq:
				unit.Seq = uint32(v)
			case dataTTL:
				unit.TTL = int(protowire.DecodeZigZag(v))
			case dataDest:
				unit.Dest = NodeID(protowire.DecodeZigZag(v))
			case dataNextHop:
				unit.NextHop = NodeID(protowire.DecodeZigZag(v))
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(body)
			if n < 0 {
				return unit, protowire.ParseError(n)
			}
			body = body[n:]
			if num == dataCreated {
				unit.Created = math.Float64frombits(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return unit, protowire.ParseError(n)
			}
			body = body[n:]
		}
	}
	if unit.Source == NodeNone || unit.Dest == NodeNone {
		return unit, fmt.Errorf("data unit missing source or destination")
	}
	return unit, nil
}
