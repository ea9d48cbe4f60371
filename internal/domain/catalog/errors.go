package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrEmptyCatalog = errors.New("catalog has no components")
	ErrMismatch     = errors.New("catalog components, texts and index disagree")
)
