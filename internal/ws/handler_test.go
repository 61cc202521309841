package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/pending"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	url      string
	handler  *Handler
	registry *surface.Registry
	bus      *events.Bus
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	bus := events.NewBus(logger, nil)
	registry := surface.NewRegistry(logger, nil)
	handler := NewHandler(registry, bus, nil, logger)

	router := gin.New()
	router.GET("/bridge", handler.HandleBridge)
	router.GET("/events", handler.HandleEvents)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		handler.Close()
		registry.CloseAll()
		srv.Close()
		bus.Close()
	})

	return &testServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		handler:  handler,
		registry: registry,
		bus:      bus,
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func attach(t *testing.T, ts *testServer, label string) *websocket.Conn {
	t.Helper()
	conn := dial(t, ts.url+"/bridge?label="+label)
	hello := read(t, conn)
	require.Equal(t, TypeSystem, hello.Type)
	require.Equal(t, label, hello.Label)
	return conn
}

func TestBridgeRequiresLabel(t *testing.T) {
	ts := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(ts.url+"/bridge", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(ts.url+"/bridge?label=bad%20label", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestBridgeDeliversScripts(t *testing.T) {
	ts := newTestServer(t)
	conn := attach(t, ts, "tab-1")

	s, err := ts.registry.Lookup("tab-1")
	require.NoError(t, err)
	assert.Equal(t, surface.KindContent, s.Kind())

	require.NoError(t, ts.registry.Inject(context.Background(), "tab-1", "document.title"))

	msg := read(t, conn)
	assert.Equal(t, TypeEval, msg.Type)
	assert.Equal(t, "document.title", msg.Script)
}

func TestBridgePublishesEventsWithLabel(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.bus.Subscribe(events.TopicTabMetadata, 4)
	conn := attach(t, ts, "tab-7")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "event",
		"event":   events.TopicTabMetadata,
		"payload": map[string]string{"title": "Hello"},
	}))

	select {
	case ev := <-sub.C():
		assert.Equal(t, "tab-7", ev.Source)
		assert.JSONEq(t, `{"title":"Hello"}`, string(ev.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	assert.Equal(t, TypePong, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))
	assert.Equal(t, TypeError, read(t, conn).Type)
}

func TestBridgeDetachesOnDisconnect(t *testing.T) {
	ts := newTestServer(t)
	conn := attach(t, ts, "tab-1")
	conn.Close()

	require.Eventually(t, func() bool {
		_, err := ts.registry.Lookup("tab-1")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBridgeNewerConnectionReplacesOlder(t *testing.T) {
	ts := newTestServer(t)
	old := attach(t, ts, "tab-1")
	fresh := attach(t, ts, "tab-1")

	// The older socket is closed by the server
	old.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := old.ReadMessage()
	assert.Error(t, err)

	require.NoError(t, ts.registry.Inject(context.Background(), "tab-1", "1"))
	assert.Equal(t, "1", read(t, fresh).Script)
}

func TestEventsListenersReceiveBroadcasts(t *testing.T) {
	ts := newTestServer(t)
	listener := dial(t, ts.url+"/events")

	require.Eventually(t, func() bool { return ts.handler.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)

	ts.handler.Broadcast(events.Event{
		Topic:   events.TopicTabBeforeUnload,
		Payload: json.RawMessage(`{"tabId":"t1"}`),
		Source:  "tab-1",
	})

	msg := read(t, listener)
	assert.Equal(t, TypeEvent, msg.Type)
	assert.Equal(t, events.TopicTabBeforeUnload, msg.Event)
	assert.Equal(t, "tab-1", msg.Label)
	assert.JSONEq(t, `{"tabId":"t1"}`, string(msg.Payload))
}

var idPattern = regexp.MustCompile(`const __id = "([^"]+)"`)

// A socket client that answers every eval like a page with the event API
func TestEvaluatorRoundTripOverBridge(t *testing.T) {
	ts := newTestServer(t)
	logger := zaptest.NewLogger(t)
	table := pending.New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge.NewRelay(ts.bus, table, 16, nil, logger).Start(ctx)

	conn := attach(t, ts, "tab-1")
	go func() {
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			m := idPattern.FindStringSubmatch(msg.Script)
			if msg.Type != TypeEval || m == nil {
				continue
			}
			payload, _ := json.Marshal(map[string]string{"id": m[1], "status": "ok", "value": `"from page"`})
			conn.WriteJSON(Message{Type: TypeEvent, Event: bridge.ResponseEvent, Payload: payload})
		}
	}()

	evaluator := bridge.NewEvaluator(table, ts.registry, 2*time.Second, nil, logger)
	got, err := evaluator.Evaluate(ctx, "tab-1", "document.title")
	require.NoError(t, err)
	assert.Equal(t, `"from page"`, got)
}
