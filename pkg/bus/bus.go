package bus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Bus is an in-process change notification registry. Notify carries no payload;
// subscribers are expected to re-query whatever they render.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func()
	watchers map[uint64]chan struct{}
	logger   *zap.Logger
}

// New constructs an empty bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[uint64]func()),
		watchers: make(map[uint64]chan struct{}),
		logger:   logger,
	}
}

// Subscribe registers a callback and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(callback func()) func() {
	if callback == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = callback
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Watch returns a channel receiving a signal after each change. Signals are
// coalesced: a slow reader sees at most one pending signal. Call cancel to stop.
func (b *Bus) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.watchers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.watchers[id]; ok {
				delete(b.watchers, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// Notify invokes every callback synchronously and signals every watcher.
// A panicking callback is logged and does not stop the others.
func (b *Bus) Notify() {
	b.mu.RLock()
	handlers := make([]func(), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	for _, ch := range b.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(h)
	}
}

// Len returns the number of registered callbacks and watchers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers) + len(b.watchers)
}

// Close drops every subscriber and closes all watcher channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[uint64]func())
	for id, ch := range b.watchers {
		close(ch)
		delete(b.watchers, id)
	}
}

func (b *Bus) invoke(h func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Sugar().Errorw("change subscriber panicked", "panic", fmt.Sprint(r))
		}
	}()
	h()
}
