package bridge

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/pending"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    pending.Completion
		wantErr bool
	}{
		{
			name:    "ok with status",
			payload: `{"id":"a","status":"ok","value":"{\"x\":1}"}`,
			want:    pending.Success("a", `{"x":1}`),
		},
		{
			name:    "error with status",
			payload: `{"id":"a","status":"error","error":"ReferenceError: y is not defined"}`,
			want:    pending.Failure("a", "ReferenceError: y is not defined"),
		},
		{
			name:    "error status without message",
			payload: `{"id":"a","status":"error"}`,
			want:    pending.Failure("a", "Unknown error"),
		},
		{
			name:    "legacy error field",
			payload: `{"id":"a","error":"boom"}`,
			want:    pending.Failure("a", "boom"),
		},
		{
			name:    "legacy value field",
			payload: `{"id":"a","value":"[1,2]"}`,
			want:    pending.Success("a", "[1,2]"),
		},
		{
			name:    "explicit ok wins over stray error",
			payload: `{"id":"a","status":"ok","value":"1","error":"ignored"}`,
			want:    pending.Success("a", "1"),
		},
		{
			name:    "no value",
			payload: `{"id":"a","status":"ok"}`,
			want:    pending.Success("a", ""),
		},
		{
			name:    "non-string value",
			payload: `{"id":"a","value":5}`,
			want:    pending.Success("a", ""),
		},
		{
			name:    "missing id",
			payload: `{"value":"1"}`,
			want:    pending.Success("", "1"),
		},
		{
			name:    "string-wrapped object",
			payload: `"{\"id\":\"a\",\"value\":\"2\"}"`,
			want:    pending.Success("a", "2"),
		},
		{name: "not json", payload: `{oops`, wantErr: true},
		{name: "array", payload: `[1,2]`, wantErr: true},
		{name: "string of garbage", payload: `"nope"`, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, errMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type relayCounts struct {
	unmatched atomic.Int32
	malformed atomic.Int32
}

func (c *relayCounts) IncRelayUnmatched() { c.unmatched.Add(1) }
func (c *relayCounts) IncRelayMalformed() { c.malformed.Add(1) }

func TestRelayResolvesPendingRequests(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, nil)
	table := pending.New(nil)
	counts := &relayCounts{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay := NewRelay(bus, table, 16, counts, logger)
	relay.Start(ctx)

	cid := id.NewCorrelationID()
	ch, err := table.Register(cid)
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]string{"id": cid.String(), "status": "ok", "value": `"hi"`})
	bus.Publish(events.Event{Topic: events.TopicScriptResponse, Payload: payload, Source: "tab-1"})

	select {
	case c := <-ch:
		assert.Equal(t, `"hi"`, c.Value)
	case <-time.After(time.Second):
		t.Fatal("relay did not resolve")
	}

	// Late duplicate and garbage are dropped without touching the table
	bus.Publish(events.Event{Topic: events.TopicScriptResponse, Payload: payload})
	bus.Publish(events.Event{Topic: events.TopicScriptResponse, Payload: []byte(`{oops`)})

	require.Eventually(t, func() bool {
		return counts.unmatched.Load() == 1 && counts.malformed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-relay.Done():
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelayStopsWhenBusCloses(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, nil)
	relay := NewRelay(bus, pending.New(nil), 4, nil, logger)
	relay.Start(context.Background())

	bus.Close()

	select {
	case <-relay.Done():
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
