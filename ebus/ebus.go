// Package ebus implements a minimal in-process event bus. Modules emit
// typed events after their state changes are committed and observers
// subscribe per event type.
package ebus

import (
	"context"
	"reflect"
	"sync"
)

type EBus struct {
	listeners map[string][]Listener
	mx        sync.RWMutex
}

func New() *EBus {
	return &EBus{
		listeners: make(map[string][]Listener),
	}
}

// Subscribe registers a handler for all events of the same type as the
// given event value. Returns the bus for chaining.
func (e *EBus) Subscribe(event any, handler Listener) *EBus {
	e.mx.Lock()
	defer e.mx.Unlock()

	name := reflect.TypeOf(event).Name()

	if _, ok := e.listeners[name]; !ok {
		e.listeners[name] = make([]Listener, 0)
	}
	e.listeners[name] = append(e.listeners[name], handler)

	return e
}

// Emit delivers the event to every listener registered for its type.
// Events without listeners are dropped. Delivery is synchronous and stops
// at the first listener error.
func (e *EBus) Emit(ctx context.Context, event any) error {
	e.mx.RLock()
	defer e.mx.RUnlock()

	name := reflect.TypeOf(event).Name()

	for _, handler := range e.listeners[name] {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}

	return nil
}
