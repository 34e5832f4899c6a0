/*
Package session runs the room session engine: it binds live connections to
room participants, executes the room commands against the room store and fans
the resulting room state out to every bound connection.

This file defines the Registry, the process-local map from participant ID to
the live connection currently bound to it.
*/
package session

import (
	"errors"
	"sync"
)

var (
	// ErrChannelClosed is returned by TrySend on a connection that has gone away.
	ErrChannelClosed = errors.New("channel closed")

	// ErrBackpressure is returned by TrySend when the outbound queue is full.
	ErrBackpressure = errors.New("outbound queue full")
)

// Channel is the outbound half of a live connection.
type Channel interface {
	// TrySend queues msg without blocking.
	TrySend(msg []byte) error

	// Closed reports whether the connection can no longer deliver messages.
	Closed() bool
}

// Registry maps participant IDs to their live connection. It is safe for
// concurrent use and never holds its lock while sending.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Bind associates userID with ch, replacing any previous binding.
func (r *Registry) Bind(userID string, ch Channel) {
	r.mu.Lock()
	r.channels[userID] = ch
	r.mu.Unlock()
}

// UnbindIf removes the binding of userID only while it still points at ch,
// so a newer binding of the same participant survives. Unbinding an absent
// ID is a no-op.
func (r *Registry) UnbindIf(userID string, ch Channel) {
	r.mu.Lock()
	if cur, ok := r.channels[userID]; ok && cur == ch {
		delete(r.channels, userID)
	}
	r.mu.Unlock()
}

// Lookup returns the open connection bound to userID. It reports false when
// there is no binding or the bound connection has closed.
func (r *Registry) Lookup(userID string) (Channel, bool) {
	r.mu.RLock()
	ch, ok := r.channels[userID]
	r.mu.RUnlock()

	if !ok || ch.Closed() {
		return nil, false
	}
	return ch, true
}

// Len returns the number of bound participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
