package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscription queue capacity when none is
// configured.
const DefaultBufferSize = 64

// Bridge fans events out across instances. The hub publishes every local
// event through it and mirrors remote events back into the local registry.
type Bridge interface {
	PublishEvent(evt Event) error
	// Subscribe starts delivery of remote events for one (channel, key)
	// pair and returns a cancel function.
	Subscribe(channel Channel, key string, handler func(Event)) (cancel func(), err error)
}

// Subscription is one subscriber's live, bounded view of a hub channel.
// Events arrive on C starting from the moment of subscription; there is no
// replay. A full queue drops the event for this subscriber only.
type Subscription struct {
	C <-chan Event

	hub     *Hub
	channel Channel
	key     string
	id      uint64
	ch      chan Event
	dropped atomic.Uint64
	once    sync.Once
}

// Close detaches the subscription and releases its queue. Safe to call
// more than once and safe concurrently with Publish.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Dropped returns how many events were discarded because this
// subscription's queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Hub is the in-process multicast broker. Each channel holds a registry of
// per-subscriber bounded queues keyed by filter value; Publish performs a
// non-blocking push per subscriber so one slow consumer never stalls the
// publisher or its peers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Channel]map[string]map[uint64]*Subscription
	remote map[Channel]map[string]func() // cancel bridge subscription per filter key
	nextID uint64
	closed bool

	bufSize int
	logger  *zap.Logger
	bridge  Bridge
}

// NewHub creates a hub with the given per-subscription buffer size. bridge
// may be nil for single-instance deployments.
func NewHub(logger *zap.Logger, bufSize int, bridge Bridge) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Hub{
		subs:    make(map[Channel]map[string]map[uint64]*Subscription),
		remote:  make(map[Channel]map[string]func()),
		bufSize: bufSize,
		logger:  logger,
		bridge:  bridge,
	}
}

// Subscribe attaches a new subscriber to channel, matching events whose
// filter key equals key (use the empty key on the unfiltered activity
// channel). The returned subscription sees only events published after it
// attached. On a closed hub the subscription's channel is already closed.
func (h *Hub) Subscribe(channel Channel, key string) *Subscription {
	sub := &Subscription{hub: h, channel: channel, key: key, ch: make(chan Event, h.bufSize)}
	sub.C = sub.ch

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	byKey := h.subs[channel]
	if byKey == nil {
		byKey = make(map[string]map[uint64]*Subscription)
		h.subs[channel] = byKey
	}
	if byKey[key] == nil {
		byKey[key] = make(map[uint64]*Subscription)
		h.startRemote(channel, key)
	}
	byKey[key][sub.id] = sub
	h.mu.Unlock()

	return sub
}

// Publish delivers evt to every matching local subscriber and mirrors it
// through the bridge. It never blocks and never fails the caller: a full
// subscriber queue counts as a drop for that subscriber alone.
func (h *Hub) Publish(evt Event) {
	h.deliver(evt)
	if h.bridge != nil {
		if err := h.bridge.PublishEvent(evt); err != nil {
			h.logger.Warn("bridge publish failed",
				zap.String("channel", string(evt.Channel)), zap.Error(err))
		}
	}
}

func (h *Hub) deliver(evt Event) {
	h.mu.RLock()
	var targets map[uint64]*Subscription
	if byKey := h.subs[evt.Channel]; byKey != nil {
		targets = byKey[evt.FilterKey]
	}
	for _, sub := range targets {
		select {
		case sub.ch <- evt:
		default:
			sub.dropped.Add(1)
			h.logger.Warn("subscriber queue full, event dropped",
				zap.String("channel", string(evt.Channel)),
				zap.String("filter_key", evt.FilterKey),
				zap.String("type", evt.Type))
		}
	}
	h.mu.RUnlock()
}

// startRemote begins mirroring remote events for one filter key. Caller
// holds h.mu.
func (h *Hub) startRemote(channel Channel, key string) {
	if h.bridge == nil {
		return
	}
	cancel, err := h.bridge.Subscribe(channel, key, h.deliver)
	if err != nil {
		h.logger.Warn("bridge subscribe failed",
			zap.String("channel", string(channel)), zap.String("filter_key", key), zap.Error(err))
		return
	}
	if h.remote[channel] == nil {
		h.remote[channel] = make(map[string]func())
	}
	h.remote[channel][key] = cancel
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if byKey := h.subs[sub.channel]; byKey != nil {
		if set := byKey[sub.key]; set != nil {
			delete(set, sub.id)
			if len(set) == 0 {
				delete(byKey, sub.key)
				if cancels := h.remote[sub.channel]; cancels != nil {
					if cancel, ok := cancels[sub.key]; ok {
						cancel()
						delete(cancels, sub.key)
					}
				}
			}
		}
	}
	close(sub.ch)
	h.mu.Unlock()
}

// SubscriberCount returns the number of live subscriptions for one
// (channel, key) pair.
func (h *Hub) SubscriberCount(channel Channel, key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if byKey := h.subs[channel]; byKey != nil {
		return len(byKey[key])
	}
	return 0
}

// Close tears the hub down, closing every subscriber queue and cancelling
// every bridge subscription. Publish on a closed hub is a no-op locally.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, byKey := range h.subs {
		for _, set := range byKey {
			for _, sub := range set {
				close(sub.ch)
			}
		}
	}
	for _, cancels := range h.remote {
		for _, cancel := range cancels {
			cancel()
		}
	}
	h.subs = make(map[Channel]map[string]map[uint64]*Subscription)
	h.remote = make(map[Channel]map[string]func())
	h.mu.Unlock()
}
