package cluster

// Time quantities are seconds on the scheduler's clock (virtual or
// wall, the protocol does not care which).
const (
	DefaultHelloInterval       = 1.0
	DefaultHelloJitter         = 0.1
	DefaultNeighborTimeout     = 3.5
	DefaultMaintenanceInterval = 2.0
	DefaultColoringInterval    = 0.5
	DefaultColoringJitter      = 0.5
	DefaultDataInterval        = 0.0 // synthetic traffic disabled
	DefaultDataJitter          = 0.5
	DefaultForwardJitter       = 0.05
	DefaultInitialTTL          = 16
	DefaultLocalPort           = 40501
	DefaultDestPort            = 40500
)

// Config holds the per-node protocol parameters. All values are
// validated up front; a node never starts in a degraded configuration.
type Config struct {
	// HelloInterval is the period between advertisements; HelloJitter
	// is a random spread added to each reschedule to desynchronize
	// beacons across nodes.
	HelloInterval float64
	HelloJitter   float64

	// NeighborTimeout is the staleness threshold for neighbor eviction.
	// Any value is accepted; non-positive values evict on every
	// maintenance pass.
	NeighborTimeout float64

	// MaintenanceInterval is the period of the prune + recolor + role
	// cycle.
	MaintenanceInterval float64

	// ColoringInterval and ColoringJitter delay the initial coloring
	// pass after start. Recoloring afterwards rides the maintenance
	// cycle.
	ColoringInterval float64
	ColoringJitter   float64

	// DataInterval is the period of synthetic data-unit generation;
	// zero disables it. DataJitter spreads the generation schedule.
	DataInterval float64
	DataJitter   float64

	// ForwardJitter bounds the random delay inserted before flooded or
	// speculative sends on the shared medium.
	ForwardJitter float64

	// InitialTTL is the hop budget given to originated data units.
	InitialTTL int

	// LocalPort and DestPort are the transport's unicast and multicast
	// ports.
	LocalPort int
	DestPort  int
}

// DefaultConfig returns the stock parameter set.
func DefaultConfig() Config {
	return Config{
		HelloInterval:       DefaultHelloInterval,
		HelloJitter:         DefaultHelloJitter,
		NeighborTimeout:     DefaultNeighborTimeout,
		MaintenanceInterval: DefaultMaintenanceInterval,
		ColoringInterval:    DefaultColoringInterval,
		ColoringJitter:      DefaultColoringJitter,
		DataInterval:        DefaultDataInterval,
		DataJitter:          DefaultDataJitter,
		ForwardJitter:       DefaultForwardJitter,
		InitialTTL:          DefaultInitialTTL,
		LocalPort:           DefaultLocalPort,
		DestPort:            DefaultDestPort,
	}
}

// Validate checks every option; an error here is fatal at startup.
func (c *Config) Validate() error {
	if c.HelloInterval < 0 {
		return ErrInvalidHelloInterval
	}
	if c.HelloJitter < 0 {
		return ErrInvalidHelloJitter
	}
	if c.MaintenanceInterval <= 0 {
		return ErrInvalidMaintenanceInterval
	}
	if c.ColoringInterval < 0 {
		return ErrInvalidColoringInterval
	}
	if c.ColoringJitter < 0 {
		return ErrInvalidColoringJitter
	}
	if c.DataInterval < 0 {
		return ErrInvalidDataInterval
	}
	if c.DataJitter < 0 {
		return ErrInvalidDataJitter
	}
	if c.ForwardJitter < 0 {
		return ErrInvalidForwardJitter
	}
	if c.InitialTTL <= 0 {
		return ErrInvalidTTL
	}
	if c.LocalPort < 1 || c.LocalPort > 65535 {
		return ErrInvalidLocalPort
	}
	if c.DestPort < 1 || c.DestPort > 65535 {
		return ErrInvalidDestPort
	}
	return nil
}
