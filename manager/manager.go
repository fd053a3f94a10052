package manager

import (
	"fmt"

	"github.com/go-zoox/core-utils/safe"
)

type Manager[T any] struct {
	options *Options[T]
	cache   *safe.Map
}

type Options[T any] struct {
	Cache *safe.Map
	Get   func(id string) (T, error)
}

func New[T any](opts ...*Options[T]) *Manager[T] {
	var options *Options[T]
	// cache := make(map[string]T)
	cache := safe.NewMap()
	if len(opts) == 1 && opts != nil {
		options = opts[0]

		if options.Cache != nil {
			cache = options.Cache
		}
	}

	return &Manager[T]{
		cache:   cache,
		options: options,
	}
}

func (m *Manager[T]) Get(id string) (T, error) {
	if m.options != nil && m.options.Get != nil {
		return m.options.Get(id)
	}

	if instance, ok := m.cache.Get(id).(T); ok {
		return instance, nil
	}

	var t T
	return t, fmt.Errorf("id %s not found", id)
}

func (m *Manager[T]) Set(id string, instance T) error {
	// m.cache[id] = instance
	m.cache.Set(id, instance)
	return nil
}

func (m *Manager[T]) GetOrCreate(id string, creator func() T) (T, error) {
	if instance, err := m.Get(id); err == nil {
		return instance, nil
	}

	// m.cache[id] = creator()
	instance := creator()
	m.cache.Set(id, instance)
	return instance, nil
}

// Remove deletes id from the cache. It is a no-op if id is absent.
func (m *Manager[T]) Remove(id string) {
	m.cache.Del(id)
}

// Has reports whether id is currently present.
func (m *Manager[T]) Has(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// ForEach visits every entry currently in the cache. fn returning false
// stops the iteration early.
func (m *Manager[T]) ForEach(fn func(id string, instance T) bool) {
	m.cache.ForEach(func(key string, value any) bool {
		instance, ok := value.(T)
		if !ok {
			return true
		}
		return fn(key, instance)
	})
}
