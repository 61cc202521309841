// Package events carries surface events between goroutines.
//
// The bus is topic keyed. Every subscriber owns a bounded queue; Publish never
// blocks, and an event that does not fit a subscriber's queue is dropped for
// that subscriber only.
package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Topics emitted by browsing surfaces
const (
	TopicScriptResponse  = "script-response"
	TopicTabMetadata     = "tab-metadata"
	TopicTabBeforeUnload = "tab-beforeunload"
)

// Event is one emitted message. Payload is raw JSON exactly as emitted.
type Event struct {
	Topic   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Source  string          `json:"source,omitempty"`
}

// Recorder receives bus counters; *monitoring.Metrics implements it
type Recorder interface {
	RecordPublish(topic string)
	RecordDrop(topic string)
}

// Subscription is one subscriber's queue for a topic
type Subscription struct {
	topic string
	ch    chan Event
}

// C returns the receive side. It is closed on Unsubscribe or bus Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Topic returns the subscribed topic
func (s *Subscription) Topic() string { return s.topic }

// Bus is an in-process topic bus
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*Subscription
	closed bool

	recorder Recorder
	logger   *zap.Logger
}

// NewBus creates a bus. recorder may be nil.
func NewBus(logger *zap.Logger, recorder Recorder) *Bus {
	return &Bus{
		subs:     make(map[string][]*Subscription),
		recorder: recorder,
		logger:   logger,
	}
}

// Subscribe registers a queue of the given depth for topic. Subscribing to a
// closed bus returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(topic string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{topic: topic, ch: make(chan Event, buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub
}

// Unsubscribe removes sub and closes its channel
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Publish hands ev to every subscriber of its topic without blocking
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	if b.recorder != nil {
		b.recorder.RecordPublish(ev.Topic)
	}

	for _, sub := range b.subs[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			if b.recorder != nil {
				b.recorder.RecordDrop(ev.Topic)
			}
			b.logger.Warn("subscriber queue full, dropping event",
				zap.String("topic", ev.Topic),
				zap.String("source", ev.Source),
			)
		}
	}
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, list := range b.subs {
		for _, sub := range list {
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
}
