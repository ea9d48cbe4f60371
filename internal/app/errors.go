package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrNoLoader     = errors.New("no catalog loader configured")
	ErrNoInventory  = errors.New("no inventory configured")
	ErrNoModelStore = errors.New("no model store configured")
)
