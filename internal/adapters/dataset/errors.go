package dataset

import "errors"

// Sentinel errors for dataset loading.
var (
	ErrNoHeader = errors.New("dataset file has no header row")
	ErrNoIDCol  = errors.New("dataset file has no id column")
)
