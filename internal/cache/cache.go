// Package cache keeps compiled path chains keyed by their source expression,
// so an expression applied to many documents is parsed once.
package cache

import (
	"container/list"
	"sync"

	"github.com/jacoelho/jpq/internal/path"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

type entry struct {
	expr  string
	chain *path.Chain
}

// Cache is a least-recently-used cache of compiled chains. It is safe for
// concurrent use.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the chain compiled for expr and marks it most recently used.
func (c *Cache) Get(expr string) (*path.Chain, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[expr]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).chain, true
}

// Put stores chain under expr, evicting the least recently used entry when full.
func (c *Cache) Put(expr string, chain *path.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[expr]; ok {
		el.Value.(*entry).chain = chain
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		if oldest := c.ll.Back(); oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).expr)
		}
	}
	c.items[expr] = c.ll.PushFront(&entry{expr: expr, chain: chain})
}

// GetOrCompile returns the cached chain for expr or compiles and stores it.
// Compile errors are not cached.
func (c *Cache) GetOrCompile(expr string, compile func(string) (*path.Chain, error)) (*path.Chain, bool, error) {
	if chain, ok := c.Get(expr); ok {
		return chain, true, nil
	}
	chain, err := compile(expr)
	if err != nil {
		return nil, false, err
	}
	c.Put(expr, chain)
	return chain, false, nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Capacity() int {
	return c.capacity
}
