package cluster

// RouteCache is a cluster head's passively learned hint map from a
// remote source to the gateway neighbor traffic from it arrived
// through. Entries are written only when a data unit was directly
// observed coming in via a current gateway neighbor, and validated
// lazily at use time: a cached gateway that left the neighborhood or
// changed role invalidates the entry for that send.
type RouteCache struct {
	routes map[NodeID]NodeID // destination -> gateway neighbor
}

func NewRouteCache() *RouteCache {
	return &RouteCache{routes: make(map[NodeID]NodeID)}
}

func (c *RouteCache) Learn(dest, gateway NodeID) {
	c.routes[dest] = gateway
}

func (c *RouteCache) Lookup(dest NodeID) (NodeID, bool) {
	gw, ok := c.routes[dest]
	return gw, ok
}

func (c *RouteCache) Evict(dest NodeID) {
	delete(c.routes, dest)
}

func (c *RouteCache) Len() int {
	return len(c.routes)
}
