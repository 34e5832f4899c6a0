package session

import (
	"sync"

	"github.com/rs/zerolog"

	"planpoker/internal/app/room"
	"planpoker/internal/pkg/logx"
	"planpoker/internal/pkg/metrics"
)

// Relay forwards messages for participants that are not bound on this
// instance to the instance that holds their connection.
type Relay interface {
	Publish(recipients []string, msg []byte)
}

// Fanout delivers encoded messages to bound connections. Delivery is
// fire-and-forget: absent, closed or saturated channels are skipped.
type Fanout struct {
	registry *Registry
	relay    Relay
	logger   zerolog.Logger
}

// NewFanout returns a Fanout resolving recipients through registry. relay may be nil.
func NewFanout(registry *Registry, relay Relay) *Fanout {
	return &Fanout{
		registry: registry,
		relay:    relay,
		logger:   logx.Component("Fanout"),
	}
}

// SendTo delivers msg to a single participant and reports whether it was queued locally.
func (f *Fanout) SendTo(userID string, msg []byte) bool {
	if len(msg) == 0 {
		return false
	}
	if f.deliver(userID, msg) {
		return true
	}
	if f.relay != nil {
		f.relay.Publish([]string{userID}, msg)
	}
	return false
}

// SendToRoom delivers msg to every member of the room snapshot r except exclude.
func (f *Fanout) SendToRoom(r room.Room, msg []byte, exclude string) {
	var remote []string

	for _, u := range r.Users {
		if u.ID == exclude {
			continue
		}
		if !f.deliver(u.ID, msg) {
			remote = append(remote, u.ID)
		}
	}

	if f.relay != nil && len(remote) > 0 {
		f.relay.Publish(remote, msg)
	}
}

// DeliverRelayed delivers a message received from another instance to the
// recipients bound here. It never relays again.
func (f *Fanout) DeliverRelayed(recipients []string, msg []byte) {
	for _, id := range recipients {
		if _, ok := f.registry.Lookup(id); ok {
			f.deliver(id, msg)
		}
	}
}

func (f *Fanout) deliver(userID string, msg []byte) bool {
	ch, ok := f.registry.Lookup(userID)
	if !ok {
		return false
	}

	if err := ch.TrySend(msg); err != nil {
		metrics.DeliveryDropped()
		f.logger.Debug().Err(err).Str("user_id", userID).Msg("Dropped outbound message.")
	}
	return true
}

// heldChannel queues messages for a connection until release, so the reply
// that establishes a binding always precedes updates fanned out to it.
type heldChannel struct {
	mu       sync.Mutex
	ch       Channel
	held     [][]byte
	released bool
}

func holdChannel(ch Channel) *heldChannel {
	return &heldChannel{ch: ch}
}

func (h *heldChannel) TrySend(msg []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return h.ch.TrySend(msg)
	}
	if h.ch.Closed() {
		return ErrChannelClosed
	}
	h.held = append(h.held, msg)
	return nil
}

func (h *heldChannel) Closed() bool {
	return h.ch.Closed()
}

// release sends first, then everything queued so far, and passes later
// messages straight through. It returns the error of sending first.
func (h *heldChannel) release(first []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if len(first) > 0 {
		err = h.ch.TrySend(first)
	}
	for _, msg := range h.held {
		if sendErr := h.ch.TrySend(msg); sendErr != nil {
			metrics.DeliveryDropped()
		}
	}
	h.held = nil
	h.released = true
	return err
}
