package com

import (
	"errors"
	"sort"
	"sync"
	"testing"
)

type tClient struct {
	id   string
	name string
}

func TestMapFind(t *testing.T) {
	m := NewMap[string, *tClient]()
	m.Put("a", &tClient{id: "a", name: "alice"})
	m.Put("b", &tClient{id: "b", name: "bob"})

	if _, err := m.Find(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty key should not be found")
	}
	c, err := m.FindBy(func(c *tClient) bool { return c.name == "bob" })
	if err != nil || c.id != "b" {
		t.Errorf("FindBy() = %v, %v", c, err)
	}
	if v, ok := m.Pop("a"); !ok || v.name != "alice" {
		t.Errorf("Pop() = %v, %v", v, ok)
	}
	if m.Has("a") || m.Len() != 1 {
		t.Errorf("a is still there")
	}
}

func TestMapConcurrent(t *testing.T) {
	m := NewMap[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Put(i, i)
		}(i)
	}
	wg.Wait()

	vv := m.Values()
	sort.Ints(vv)
	if len(vv) != 100 || vv[0] != 0 || vv[99] != 99 {
		t.Errorf("lost writes: %v", len(vv))
	}
}
