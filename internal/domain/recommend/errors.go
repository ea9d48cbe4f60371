package recommend

import (
	"errors"

	"github.com/okian/rigmatch/internal/domain/similarity"
)

// Sentinel kinds for recommendation errors.
var (
	ErrNotTrained   = similarity.ErrNotTrained
	ErrNotFound     = errors.New("component not found")
	ErrInvalidCount = errors.New("recommendation count must be at least 1")
)
