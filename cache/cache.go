package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire after a TTL.
type Cache[K comparable, V any] struct {
	lru *lru.Cache[K, *entry[V]]
	now func() time.Time
}

func New[K comparable, V any](size int) (*Cache[K, V], error) {
	l, err := lru.New[K, *entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{lru: l, now: time.Now}, nil
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.data, true
}

func (c *Cache[K, V]) Set(key K, val V, ttl time.Duration) {
	c.lru.Add(key, &entry[V]{
		data:      val,
		expiresAt: c.now().Add(ttl),
	})
}

func (c *Cache[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
