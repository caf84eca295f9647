// Package opsbus is the single-consumer channel between the API
// adapter and the cron engine (§4.8): the handler posts a JobOperation
// after persistence succeeds, and whatever consumer is currently
// registered (normally the engine's Notify method) reacts synchronously.
package opsbus

import (
	"sync"

	"oss.nandlabs.io/ecscheduler/jobmodel"
)

// Consumer reacts to a posted job operation.
type Consumer func(op jobmodel.JobOperation) error

// Bus holds exactly one registered consumer behind a mutex. There is no
// queue and no ordering guarantee beyond the caller's own call order.
type Bus struct {
	mu       sync.RWMutex
	consumer Consumer
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Register installs consumer, replacing any prior registration.
func (b *Bus) Register(consumer Consumer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumer = consumer
}

// Post forwards op to the registered consumer synchronously. If none is
// registered, op is silently dropped.
func (b *Bus) Post(op jobmodel.JobOperation) error {
	b.mu.RLock()
	consumer := b.consumer
	b.mu.RUnlock()

	if consumer == nil {
		return nil
	}
	return consumer(op)
}
