// Package events is the in-process pub/sub the relay client uses to hand
// inbound frames to UI code without polling.
package events

import (
	"encoding/json"
	"sync"
)

// Listener is a registration handle. The same handle registered twice under
// one event name is stored once.
type Listener struct {
	fn func(payload json.RawMessage)
}

// NewListener wraps fn in a handle.
func NewListener(fn func(payload json.RawMessage)) *Listener {
	return &Listener{fn: fn}
}

// Dispatcher fans events out to listeners keyed by event name, in
// registration order. It is safe for concurrent use; listeners run on the
// emitting goroutine without the lock held, so they may add or remove
// listeners themselves.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[string][]*Listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]*Listener),
	}
}

func (d *Dispatcher) AddEventListener(name string, l *Listener) {
	if l == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.listeners[name] {
		if existing == l {
			return
		}
	}
	d.listeners[name] = append(d.listeners[name], l)
}

// RemoveEventListener is a no-op when l is not registered under name.
func (d *Dispatcher) RemoveEventListener(name string, l *Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.listeners[name]
	for i, existing := range list {
		if existing == l {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(d.listeners, name)
		return
	}
	d.listeners[name] = list
}

// Emit calls every listener for name with the same payload and returns how
// many were called.
func (d *Dispatcher) Emit(name string, payload json.RawMessage) int {
	d.mu.Lock()
	list := d.listeners[name]
	d.mu.Unlock()

	for _, l := range list {
		l.fn(payload)
	}
	return len(list)
}

// Count returns the number of listeners registered for name.
func (d *Dispatcher) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[name])
}

// Clear drops every listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = make(map[string][]*Listener)
}
