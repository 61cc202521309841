package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/pending"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var errMalformed = errors.New("malformed script-response payload")

// RelayRecorder receives relay counters; *monitoring.Metrics implements it
type RelayRecorder interface {
	IncRelayUnmatched()
	IncRelayMalformed()
}

// Relay is the only writer that resolves pending evaluations. It owns the
// bus subscription for script-response events.
type Relay struct {
	bus      *events.Bus
	table    *pending.Table
	buffer   int
	recorder RelayRecorder
	logger   *zap.Logger

	done chan struct{}
}

// NewRelay creates a relay. recorder may be nil.
func NewRelay(bus *events.Bus, table *pending.Table, buffer int, recorder RelayRecorder, logger *zap.Logger) *Relay {
	return &Relay{
		bus:      bus,
		table:    table,
		buffer:   buffer,
		recorder: recorder,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start subscribes before returning, so no response published afterwards is
// missed, then handles events on its own goroutine until ctx ends or the bus
// closes. Start must be called once.
func (r *Relay) Start(ctx context.Context) {
	sub := r.bus.Subscribe(events.TopicScriptResponse, r.buffer)

	go func() {
		defer close(r.done)
		defer r.bus.Unsubscribe(sub)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C():
				if !ok {
					return
				}
				r.handle(ev)
			}
		}
	}()
}

// Done is closed once the relay goroutine has exited
func (r *Relay) Done() <-chan struct{} { return r.done }

func (r *Relay) handle(ev events.Event) {
	c, err := parseResponse(ev.Payload)
	if err != nil {
		if r.recorder != nil {
			r.recorder.IncRelayMalformed()
		}
		r.logger.Debug("dropping script-response",
			zap.String("source", ev.Source),
			zap.ByteString("payload", ev.Payload),
			zap.Error(err),
		)
		return
	}

	if !r.table.Resolve(c) {
		if r.recorder != nil {
			r.recorder.IncRelayUnmatched()
		}
		r.logger.Debug("script-response matched no pending request",
			zap.String("id", c.ID.String()),
			zap.String("source", ev.Source),
		)
	}
}

// parseResponse decodes {id, status?, value?, error?}. A payload that is a
// JSON string holding such an object is unwrapped once.
func parseResponse(raw []byte) (pending.Completion, error) {
	var decoded interface{}
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return pending.Completion{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	if text, ok := decoded.(string); ok {
		decoded = nil
		if err := sonic.UnmarshalString(text, &decoded); err != nil {
			return pending.Completion{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
	}

	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return pending.Completion{}, fmt.Errorf("%w: not an object", errMalformed)
	}

	cid, _ := obj["id"].(string)
	status, _ := obj["status"].(string)
	msg, hasErr := obj["error"].(string)

	switch {
	case status == "error":
		if !hasErr {
			msg = "Unknown error"
		}
		return pending.Failure(id.CorrelationID(cid), msg), nil
	case status == "" && hasErr:
		return pending.Failure(id.CorrelationID(cid), msg), nil
	}

	value, _ := obj["value"].(string)
	return pending.Success(id.CorrelationID(cid), value), nil
}
