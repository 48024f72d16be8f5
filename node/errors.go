package node

import "errors"

var (
	ErrTransportRequired = errors.New("transport is required")
	ErrSchedulerRequired = errors.New("scheduler is required")
	ErrAlreadyStarted    = errors.New("runner already started")
)
