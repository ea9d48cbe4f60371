package recommend

import (
	"github.com/okian/rigmatch/internal/domain/scoring"
	"github.com/okian/rigmatch/pkg/logger"
)

// Option applies a configuration option to the Recommender.
type Option func(*Recommender)

// WithScorer replaces the default rule scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(r *Recommender) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recommender) {
		if l != nil {
			r.log = l
		}
	}
}
