package catalog

import (
	"context"
	"fmt"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
)

// Loader produces catalog components from one source.
type Loader interface {
	Load(ctx context.Context) ([]model.Component, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]model.Component, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) ([]model.Component, error) { return f(ctx) }

// NamedLoader attaches a name to a source for logging.
type NamedLoader struct {
	Name string
	Loader
}

// CombinedLoader concatenates its sources in order. A failing source is
// logged and skipped.
type CombinedLoader struct {
	sources []NamedLoader
	log     logger.Logger
}

// NewCombinedLoader returns a loader over sources. A nil log discards output.
func NewCombinedLoader(log logger.Logger, sources ...NamedLoader) *CombinedLoader {
	if log == nil {
		log = logger.Nop()
	}
	return &CombinedLoader{sources: sources, log: log}
}

// Load implements Loader. It fails with ErrEmptyCatalog when no source
// produced a component.
func (c *CombinedLoader) Load(ctx context.Context) ([]model.Component, error) {
	var out []model.Component
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		comps, err := src.Load(ctx)
		if err != nil {
			c.log.Warn(ctx, "catalog source failed, skipping",
				logger.String("source", src.Name), logger.Error(err))
			continue
		}
		c.log.Info(ctx, "catalog source loaded",
			logger.String("source", src.Name), logger.Int("components", len(comps)))
		out = append(out, comps...)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCatalog
	}
	return out, nil
}
