package cluster

import "errors"

var (
	ErrInvalidHelloInterval       = errors.New("hello interval must be >= 0")
	ErrInvalidHelloJitter         = errors.New("hello jitter must be >= 0")
	ErrInvalidMaintenanceInterval = errors.New("maintenance interval must be > 0")
	ErrInvalidColoringInterval    = errors.New("coloring interval must be >= 0")
	ErrInvalidColoringJitter      = errors.New("coloring jitter must be >= 0")
	ErrInvalidDataInterval        = errors.New("data interval must be >= 0")
	ErrInvalidDataJitter          = errors.New("data jitter must be >= 0")
	ErrInvalidForwardJitter       = errors.New("forward jitter must be >= 0")
	ErrInvalidTTL                 = errors.New("initial TTL must be > 0")
	ErrInvalidLocalPort           = errors.New("local port must be in 1..65535")
	ErrInvalidDestPort            = errors.New("dest port must be in 1..65535")
	ErrInvalidNodeID              = errors.New("node id must be >= 0")
)
