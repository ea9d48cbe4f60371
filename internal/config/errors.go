package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidConfig wraps a setting that failed validation; the message
	// names the koanf key and its RIGMATCH_ variable.
	ErrInvalidConfig = errors.New("invalid rigmatch setting")
	// ErrLoadConfig wraps failures reading the RIGMATCH_CONFIG file or the
	// RIGMATCH_ environment.
	ErrLoadConfig = errors.New("cannot load rigmatch config")
)
