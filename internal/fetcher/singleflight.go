package fetcher

import (
	"golang.org/x/sync/singleflight"
)

// Group collapses concurrent calls that share a key into one. It is not a cache:
// once the in-flight call returns, the next Do runs fn again.
type Group[V any] struct {
	g singleflight.Group
}

func (g *Group[V]) Do(key string, fn func() (V, error)) (V, error, bool) {
	v, err, shared := g.g.Do(key, func() (interface{}, error) {
		return fn()
	})
	out, _ := v.(V)
	return out, err, shared
}
