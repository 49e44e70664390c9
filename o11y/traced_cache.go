package o11y

import (
	"context"

	"github.com/goware/cachestore"
)

type tracedCache[V any] struct {
	label string
	cachestore.Store[V]
}

func NewTracedCache[V any](label string, store cachestore.Store[V]) cachestore.Store[V] {
	return &tracedCache[V]{label: label, Store: store}
}

func (c *tracedCache[V]) GetOrSetWithLock(ctx context.Context, key string, getter func(context.Context, string) (V, error)) (_ V, err error) {
	ctx, span := Trace(ctx, "cachestore.GetOrSetWithLock", WithAnnotation("cache", c.label))
	source := "cache"
	defer func() {
		span.SetAnnotation("source", source)
		span.RecordError(err)
		span.End()
		cacheLookups.WithLabelValues(c.label, source).Inc()
	}()

	tracedGetter := func(ctx context.Context, key string) (V, error) {
		source = "origin"
		return getter(ctx, key)
	}
	return c.Store.GetOrSetWithLock(ctx, key, tracedGetter)
}
