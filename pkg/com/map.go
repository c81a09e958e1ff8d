package com

import (
	"errors"
	"sync"
)

// Map defines a concurrent-safe map structure.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.Mutex
}

var ErrNotFound = errors.New("not found")

func NewMap[K comparable, V any]() *Map[K, V] { return &Map[K, V]{m: make(map[K]V, 10)} }

func (m *Map[K, _]) Has(key K) bool    { _, err := m.Find(key); return err == nil }
func (m *Map[_, _]) Len() int          { m.mu.Lock(); defer m.mu.Unlock(); return len(m.m) }
func (m *Map[K, V]) Put(key K, v V)    { m.mu.Lock(); m.m[key] = v; m.mu.Unlock() }
func (m *Map[K, _]) RemoveByKey(key K) { m.mu.Lock(); delete(m.m, key); m.mu.Unlock() }

// Pop removes and returns the value of the key.
func (m *Map[K, V]) Pop(key K) (v V, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok = m.m[key]
	delete(m.m, key)
	return
}

// Find searches for the first match by a specified key value,
// returns ErrNotFound otherwise.
func (m *Map[K, V]) Find(key K) (v V, err error) {
	var empty K
	if key == empty {
		return v, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.m[key]; ok {
		return c, nil
	}
	return v, ErrNotFound
}

// FindBy searches the first key-value with the provided predicate function.
func (m *Map[K, V]) FindBy(fn func(v V) bool) (v V, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.m {
		if fn(w) {
			return w, nil
		}
	}
	return v, ErrNotFound
}

// ForEach processes every element with the provided callback function.
// The callback must not call the map.
func (m *Map[K, V]) ForEach(fn func(v V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.m {
		fn(w)
	}
}

// Values returns a snapshot of the values.
func (m *Map[_, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	vv := make([]V, 0, len(m.m))
	for _, v := range m.m {
		vv = append(vv, v)
	}
	return vv
}
