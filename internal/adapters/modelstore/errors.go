package modelstore

import "errors"

// Sentinel errors for the model store.
var (
	ErrNoModel          = errors.New("no stored model")
	ErrChecksumMismatch = errors.New("stored model checksum mismatch")
	ErrFormat           = errors.New("unsupported model file format")
)
