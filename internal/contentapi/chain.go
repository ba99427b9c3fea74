package contentapi

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries an ordered list of sources until one answers. ErrNotFound
// from a source falls through to the next; transport errors are logged
// and skipped the same way, so a flaky remote degrades to the fallback
// instead of failing the fetch.
type Chain struct {
	sources []Source
}

// NewChain creates a fallback chain over the given sources, tried in order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) Course(ctx context.Context, id string) (Course, error) {
	return chainFetch(ctx, c.sources, id, "curso", Source.Course)
}

func (c *Chain) Subject(ctx context.Context, id string) (Subject, error) {
	return chainFetch(ctx, c.sources, id, "materia", Source.Subject)
}

func (c *Chain) Module(ctx context.Context, id string) (Module, error) {
	return chainFetch(ctx, c.sources, id, "modulo", Source.Module)
}

func chainFetch[T any](ctx context.Context, sources []Source, id, kind string, fetch func(Source, context.Context, string) (T, error)) (T, error) {
	var zero T
	lastErr := error(ErrNotFound)

	for _, src := range sources {
		entity, err := fetch(src, ctx, id)
		if err == nil {
			return entity, nil
		}
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("content source failed, trying next",
				"kind", kind,
				"id", id,
				"error", err,
			)
		}
		lastErr = err
	}

	return zero, lastErr
}
