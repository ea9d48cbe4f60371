package similarity

import "errors"

// Sentinel kinds for index errors.
var (
	ErrNotTrained  = errors.New("similarity index not trained")
	ErrOutOfRange  = errors.New("document index out of range")
	ErrEmptyCorpus = errors.New("empty corpus")
	ErrBadState    = errors.New("invalid index state")
)
