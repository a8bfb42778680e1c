package sensors

import (
	"context"

	"codeberg.org/mutker/thermalctl/internal/logger"
)

// Source is one acquisition strategy. An error and an empty result are
// treated the same way by Chain.
type Source[T any] struct {
	Name string
	Read func(ctx context.Context) ([]T, error)
}

// Chain tries its sources in order and returns the first non-empty, filtered
// result. Results from different sources are never merged.
type Chain[T any] struct {
	Signal  string
	Sources []Source[T]
	Filter  func(T) bool
	logger  logger.Logger
}

func NewChain[T any](signal string, filter func(T) bool, log logger.Logger, sources ...Source[T]) *Chain[T] {
	if log == nil {
		log = logger.Default()
	}

	return &Chain[T]{
		Signal:  signal,
		Sources: sources,
		Filter:  filter,
		logger:  log,
	}
}

// Acquire never fails; when every source is empty it returns nil. The name of
// the winning source is returned alongside the readings.
func (c *Chain[T]) Acquire(ctx context.Context) ([]T, string) {
	for _, src := range c.Sources {
		values, err := src.Read(ctx)
		if err != nil {
			c.logger.Debug().
				Str("signal", c.Signal).
				Str("source", src.Name).
				Err(err).
				Msg("Source unavailable")
			continue
		}

		values = c.filter(values)
		if len(values) == 0 {
			c.logger.Debug().
				Str("signal", c.Signal).
				Str("source", src.Name).
				Msg("Source returned no readings")
			continue
		}

		c.logger.Debug().
			Str("signal", c.Signal).
			Str("source", src.Name).
			Int("count", len(values)).
			Msg("Readings obtained")

		return values, src.Name
	}

	return nil, ""
}

func (c *Chain[T]) filter(values []T) []T {
	if c.Filter == nil {
		return values
	}

	kept := values[:0:0]
	for _, v := range values {
		if c.Filter(v) {
			kept = append(kept, v)
		}
	}

	return kept
}
