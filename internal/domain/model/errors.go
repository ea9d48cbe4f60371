package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrMissingID       = errors.New("component id missing or invalid")
)
