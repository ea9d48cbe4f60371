package inventory

import "errors"

// Sentinel kinds for inventory errors.
var (
	ErrOracleUnavailable = errors.New("inventory oracle unavailable")
	ErrNoColumns         = errors.New("no fields match the inventory table columns")
	ErrUnknownTable      = errors.New("inventory table does not exist")
)
