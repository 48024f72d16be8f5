package cluster

import "github.com/meshlab/meshcluster/transport"

/*
Data plane.

The receive path applies, in order: cluster-head route learning, the
explicit next-hop filter, duplicate suppression, local delivery, the
member stop rule, the TTL check, and role-dependent forwarding.

Jitter discipline: a confidently addressed single unicast (direct
neighbor delivery, gateway-to-own-head uplink) goes out immediately;
every speculative or multi-recipient send (cached-route unicast,
flood to gateways, gateway bridging fan-out) is deferred by an
independently drawn random delay so transmissions on the shared
medium stagger instead of colliding. Jitter is collision avoidance
only; convergence may not depend on any particular delay values.
*/

// Originate sends an application data unit from this node toward
// dest, following the same role split the forwarding path uses.
func (n *Node) Originate(dest NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	n.originateLocked(dest)
}

func (n *Node) originateLocked(dest NodeID) {
	n.seq++
	unit := DataUnit{
		Source:  n.id,
		Seq:     n.seq,
		TTL:     n.cfg.InitialTTL,
		Dest:    dest,
		NextHop: NodeNone,
		Created: n.scheduler.Now(),
	}
	// Echo guard: mark our own unit so a flooded copy coming back is
	// suppressed. The one exception is handled in the receive path.
	n.dedup.Mark(unit.Source, unit.Seq)

	switch n.role {
	case RoleMember, RoleGateway:
		// Strict uplink: non-head sources always hand the unit to
		// their own cluster head.
		head, ok := n.neighbors.Lookup(n.cluster)
		if !ok {
			n.logf("dropping unit seq=%d dest=%d: no reachable cluster head", unit.Seq, dest)
			n.sink.Dropped(unit, DropOrphan)
			return
		}
		unit.NextHop = head.ID
		n.unicastNowLocked(unit, head.Addr)
		n.sink.Forwarded(unit)
	case RoleClusterHead:
		n.forwardFromHeadLocked(unit)
	default:
		n.logf("dropping unit seq=%d dest=%d: undecided, no uplink", unit.Seq, dest)
		n.sink.Dropped(unit, DropOrphan)
	}
}

// onDataLocked is the uniform receive path, whether the unit is
// foreign or our own returning from the backbone.
func (n *Node) onDataLocked(unit DataUnit, from transport.Address) {
	sender, senderKnown := n.neighbors.ByAddr(from)
	n.known[unit.Source] = struct{}{}

	// 1. Route learning: a head that sees traffic from a source
	// arrive through a gateway neighbor remembers that gateway as
	// the way back.
	if n.role == RoleClusterHead && senderKnown && sender.Role == RoleGateway && unit.Source != n.id {
		n.routes.Learn(unit.Source, sender.ID)
	}

	// 2. Addressing filter: overheard traffic meant for someone else.
	if unit.NextHop != NodeNone && unit.NextHop != n.id {
		n.sink.Dropped(unit, DropAddrMiss)
		return
	}

	// 3. Duplicate filter. The single re-admission: we are the
	// original source, we are a gateway, and the unit is coming back
	// from our own cluster head. The dedup record was only the
	// same-node echo guard; the head is asking us to bridge the unit
	// outward.
	if n.dedup.Seen(unit.Source, unit.Seq) {
		echo := unit.Source == n.id && n.role == RoleGateway && senderKnown && sender.ID == n.cluster
		if !echo {
			n.sink.Dropped(unit, DropDuplicate)
			return
		}
	} else {
		n.dedup.Mark(unit.Source, unit.Seq)
	}

	// 4. Local delivery.
	if unit.Dest == n.id {
		n.logf("delivered unit source=%d seq=%d after %d hops worth of TTL", unit.Source, unit.Seq, n.cfg.InitialTTL-unit.TTL)
		n.sink.Delivered(unit)
		return
	}

	// 5. Members (and undecided nodes) never relay transit traffic.
	if n.role == RoleMember || n.role == RoleUndecided {
		n.sink.Dropped(unit, DropNotForwarder)
		return
	}

	// 6. Hop budget.
	if unit.TTL <= 0 {
		n.sink.Dropped(unit, DropTTLExpired)
		return
	}

	// 7. Forward with one hop spent.
	fwd := unit
	fwd.TTL--
	switch n.role {
	case RoleClusterHead:
		n.forwardFromHeadLocked(fwd)
	case RoleGateway:
		n.relayFromGatewayLocked(fwd, sender, senderKnown)
	}
}

// forwardFromHeadLocked runs the head's decision tree: direct
// neighbor, cached gateway, then jittered flood to every gateway.
func (n *Node) forwardFromHeadLocked(unit DataUnit) {
	if nb, ok := n.neighbors.Lookup(unit.Dest); ok {
		unit.NextHop = unit.Dest
		n.unicastNowLocked(unit, nb.Addr)
		n.sink.Forwarded(unit)
		return
	}

	if gw, ok := n.routes.Lookup(unit.Dest); ok {
		if nb, present := n.neighbors.Lookup(gw); present && nb.Role == RoleGateway {
			unit.NextHop = gw
			n.scheduleUnicastLocked(unit, gw)
			n.sink.Forwarded(unit)
			return
		}
		// Cached gateway left or changed role: evict and fall back
		// to the flood for this send.
		n.logf("evicting stale route dest=%d via gateway=%d", unit.Dest, gw)
		n.routes.Evict(unit.Dest)
	}

	sent := 0
	for _, nb := range n.neighbors.Snapshot() {
		if nb.Role != RoleGateway {
			continue
		}
		copyUnit := unit
		copyUnit.NextHop = nb.ID
		n.scheduleFloodCopyLocked(copyUnit)
		sent++
	}
	if sent == 0 {
		n.logf("dropping unit source=%d seq=%d dest=%d: no gateways to flood", unit.Source, unit.Seq, unit.Dest)
		n.sink.Dropped(unit, DropNoGateway)
		return
	}
	n.sink.Forwarded(unit)
}

// relayFromGatewayLocked bridges a unit across the backbone. A unit
// handed to us by our own cluster head is leaving the cluster:
// fan it out to every foreign-cluster gateway or head we can hear.
// Anything else arrived from a foreign backbone: hand it up to our
// own head on the collision-safe unicast path.
func (n *Node) relayFromGatewayLocked(unit DataUnit, sender NeighborRecord, senderKnown bool) {
	outbound := senderKnown && sender.ID == n.cluster

	if outbound {
		sent := 0
		for _, nb := range n.neighbors.Snapshot() {
			if nb.Cluster == NodeNone || nb.Cluster == n.cluster {
				continue
			}
			if nb.Role != RoleGateway && nb.Role != RoleClusterHead {
				continue
			}
			copyUnit := unit
			copyUnit.NextHop = nb.ID
			n.scheduleUnicastLocked(copyUnit, nb.ID)
			sent++
		}
		if sent == 0 {
			n.sink.Dropped(unit, DropNoGateway)
			return
		}
		n.sink.Forwarded(unit)
		return
	}

	head, ok := n.neighbors.Lookup(n.cluster)
	if !ok {
		n.logf("dropping unit source=%d seq=%d: gateway without reachable cluster head", unit.Source, unit.Seq)
		n.sink.Dropped(unit, DropOrphan)
		return
	}
	unit.NextHop = head.ID
	n.unicastNowLocked(unit, head.Addr)
	n.sink.Forwarded(unit)
}

// unicastNowLocked transmits immediately; confident single-target
// sends never wait.
func (n *Node) unicastNowLocked(unit DataUnit, to transport.Address) {
	if err := n.tr.SendUnicast(EncodeDataUnit(unit), to); err != nil {
		n.logf("unicast to %s failed: %v", to, err)
	}
}

// scheduleUnicastLocked defers a unicast by a random jitter and
// re-resolves the target when the timer fires: if the neighbor
// vanished meanwhile, the send is dropped with a warning, not
// retried.
func (n *Node) scheduleUnicastLocked(unit DataUnit, target NodeID) {
	n.scheduleLocked(n.uniform(n.cfg.ForwardJitter), func() {
		nb, ok := n.neighbors.Lookup(target)
		if !ok {
			n.logf("dropping delayed unit source=%d seq=%d: neighbor %d gone", unit.Source, unit.Seq, target)
			n.sink.Dropped(unit, DropPeerGone)
			return
		}
		n.unicastNowLocked(unit, nb.Addr)
	})
}

// scheduleFloodCopyLocked defers one flood copy. Flood copies go out
// on the multicast group with the target gateway named as explicit
// next hop; everyone else overhearing the copy discards it in the
// addressing filter.
func (n *Node) scheduleFloodCopyLocked(unit DataUnit) {
	n.scheduleLocked(n.uniform(n.cfg.ForwardJitter), func() {
		if _, ok := n.neighbors.Lookup(unit.NextHop); !ok {
			n.logf("dropping flood copy source=%d seq=%d: gateway %d gone", unit.Source, unit.Seq, unit.NextHop)
			n.sink.Dropped(unit, DropPeerGone)
			return
		}
		if err := n.tr.SendMulticast(EncodeDataUnit(unit)); err != nil {
			n.logf("flood copy failed: %v", err)
		}
	})
}
