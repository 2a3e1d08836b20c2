package util

import "sync"

// Guarded holds a value shared between goroutines.
type Guarded[T any] struct {
	lock  sync.Mutex
	value T
}

func (g *Guarded[T]) Load() T {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.value
}

func (g *Guarded[T]) Store(value T) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.value = value
}
