// Package transport carries protocol frames between nodes.
//
// The protocol treats the network as a shared radio medium: a node can
// unicast a frame to a neighbor it has an address for, or multicast a
// frame to whoever is in range. Delivery is best effort; nothing here
// retries or acknowledges. Backends: an in-process simulated medium,
// UDP with a fixed multicast group, Redis pub/sub and MQTT.
package transport

// Address is an opaque transport-level contact string. Its format is
// backend specific (host:port for UDP, a channel name for pub/sub
// backends, a label for the in-memory medium).
type Address string

// Handler receives every inbound frame along with the sender's address.
type Handler func(payload []byte, from Address)

// Transport is the narrow surface the protocol consumes.
type Transport interface {
	// Addr returns the address other nodes can unicast to.
	Addr() Address

	// Start registers the inbound handler and begins delivery. It must
	// be called exactly once before any send.
	Start(h Handler) error

	// SendUnicast sends a frame to a single peer.
	SendUnicast(payload []byte, to Address) error

	// SendMulticast sends a frame to every peer in range (the fixed
	// multicast group on real backends).
	SendMulticast(payload []byte) error

	Close() error
}
