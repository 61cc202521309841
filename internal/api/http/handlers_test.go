package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/pending"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/commands"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/monitoring"
	"github.com/SilexsecureTeam/defcomm-browser/internal/metadata"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/browser/sandbox"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/http/client"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testEnv struct {
	router *gin.Engine
	host   *sandbox.Host
	bus    *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	metrics := monitoring.NewMetrics()

	bus := events.NewBus(logger, metrics)
	table := pending.New(metrics.SetPending)
	registry := surface.NewRegistry(logger, nil)

	opts := client.DefaultOptions()
	opts.Retries = 0
	fetcher := client.New(opts, logger)
	host := sandbox.NewHost(sandbox.DefaultConfig(), registry, bus, fetcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	bridge.NewRelay(bus, table, 64, metrics, logger).Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = host.Close()
		bus.Close()
	})

	evaluator := bridge.NewEvaluator(table, registry, time.Second, metrics, logger)
	pipeline := metadata.NewPipeline(evaluator, fetcher, metrics, logger)
	dispatcher := commands.NewDispatcher(nil, metrics, logger)
	require.NoError(t, commands.NewService(registry, evaluator, pipeline).Register(dispatcher))

	h := NewHandlers(Deps{
		Dispatcher: dispatcher,
		Registry:   registry,
		Host:       host,
		Bus:        bus,
		Breakers:   fetcher.Breakers,
		Metrics:    metrics,
		Logger:     logger,
	})
	router := gin.New()
	h.Register(router)

	return &testEnv{router: router, host: host, bus: bus}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeInvoke(t *testing.T, w *httptest.ResponseRecorder) InvokeResponse {
	t.Helper()
	var resp InvokeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInvokeGetPageProperties(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/surfaces/headless", map[string]string{
		"label": "tab-1",
		"url":   "https://example.com/",
		"html":  "<title>Example</title>",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/invoke/get_page_properties", map[string]string{
		"label":  "tab-1",
		"script": "({title: document.title, href: location.href})",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeInvoke(t, w)
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"title":"Example","href":"https://example.com/"}`, resp.Value)
}

func TestInvokeReportsCommandErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/invoke/eval_in_webview", map[string]string{"label": "ghost", "script": "1"})
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeInvoke(t, w)
	assert.False(t, resp.OK)
	assert.Equal(t, "Webview/WebviewWindow 'ghost' not found.", resp.Error)

	w = env.do(http.MethodPost, "/invoke/get_page_metadata", map[string]string{"label": "ghost"})
	resp = decodeInvoke(t, w)
	assert.False(t, resp.OK)
	assert.Equal(t, "In-page metadata failed and no URL provided for fallback", resp.Error)
}

func TestInvokeStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/invoke/nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/invoke/get_page_properties", map[string]string{"label": "x"}).Code)

	req := httptest.NewRequest(http.MethodPost, "/invoke/get_page_properties", bytes.NewBufferString("[1,2]"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSurfaceLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/surfaces/headless", map[string]string{"label": "tab-1", "url": "https://example.com/", "html": "<p>x</p>"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/surfaces", nil)
	assert.JSONEq(t, `{"surfaces":[{"label":"tab-1","kind":"window"}]}`, w.Body.String())

	env.do(http.MethodPost, "/invoke/eval_in_webview", map[string]string{"label": "tab-1", "script": "console.log('hello')"})
	require.Eventually(t, func() bool {
		w := env.do(http.MethodGet, "/surfaces/headless/tab-1/console", nil)
		return bytes.Contains(w.Body.Bytes(), []byte("hello"))
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/surfaces/headless/tab-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/surfaces/headless/tab-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/surfaces/headless/tab-1/console", nil).Code)

	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodPost, "/surfaces/cdp", map[string]string{"label": "x"}).Code)
}

func TestPublishEvent(t *testing.T) {
	env := newTestEnv(t)
	sub := env.bus.Subscribe(events.TopicTabMetadata, 1)

	req := httptest.NewRequest(http.MethodPost, "/events/tab-metadata?source=tab-3", bytes.NewBufferString(`{"title":"T"}`))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case ev := <-sub.C():
		assert.Equal(t, "tab-3", ev.Source)
		assert.JSONEq(t, `{"title":"T"}`, string(ev.Payload))
	case <-time.After(time.Second):
		t.Fatal("event not published")
	}

	req = httptest.NewRequest(http.MethodPost, "/events/tab-metadata", bytes.NewBufferString(`{oops`))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/events/tab%20metadata", bytes.NewBufferString(`{}`))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "topic contains invalid characters")
}

func TestStreamLogs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/logs", map[string]interface{}{
		"label":   "tab-1",
		"entries": []map[string]interface{}{{"level": "warn", "message": "careful", "context": map[string]interface{}{"n": 1}}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/logs", map[string]interface{}{"label": "tab-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])

	w = env.do(http.MethodGet, "/metrics/json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"breakers"`)

	w = env.do(http.MethodGet, "/commands", nil)
	assert.Contains(t, w.Body.String(), commands.GetPageMetadataSimple)
}
