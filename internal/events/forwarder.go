package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Broadcaster delivers an event to every shell listener
type Broadcaster interface {
	Broadcast(ev Event)
}

// Forwarder relays tab lifecycle events from surfaces to shell listeners
// unchanged.
type Forwarder struct {
	bus    *Bus
	out    Broadcaster
	buffer int
	logger *zap.Logger
}

// NewForwarder creates a forwarder for the tab-metadata and tab-beforeunload
// topics
func NewForwarder(bus *Bus, out Broadcaster, buffer int, logger *zap.Logger) *Forwarder {
	return &Forwarder{bus: bus, out: out, buffer: buffer, logger: logger}
}

// Run forwards events until ctx is cancelled or the bus closes
func (f *Forwarder) Run(ctx context.Context) {
	topics := []string{TopicTabMetadata, TopicTabBeforeUnload}

	var wg sync.WaitGroup
	for _, topic := range topics {
		sub := f.bus.Subscribe(topic, f.buffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer f.bus.Unsubscribe(sub)
			f.pump(ctx, sub)
		}()
	}
	wg.Wait()
}

func (f *Forwarder) pump(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			f.logger.Info("forwarding tab event",
				zap.String("topic", ev.Topic),
				zap.String("source", ev.Source),
				zap.ByteString("payload", ev.Payload),
			)
			f.out.Broadcast(ev)
		}
	}
}
