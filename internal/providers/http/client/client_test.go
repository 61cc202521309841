package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/resilience"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, mutate func(*Options)) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.Retries = 0
	opts.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts, zaptest.NewLogger(t))
}

func TestFetchSendsUserAgentAndReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head><title>Example</title></head></html>")
	}))
	defer srv.Close()

	page, err := newTestClient(t, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "DefcommBrowser/0.1", gotUA)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.True(t, page.IsHTML())
	assert.Contains(t, string(page.Body), "<title>Example</title>")
}

func TestFetchFollowsRedirectsAndReportsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<title>done</title>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := newTestClient(t, nil).Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/final", page.URL)
}

func TestFetchStopsAfterRedirectLimit(t *testing.T) {
	var hops int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hops, 1)
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n), http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&hops), int32(6))
}

func TestFetchReturnsErrorPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<title>Not Found</title>")
	}))
	defer srv.Close()

	page, err := newTestClient(t, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, page.Status)
	assert.Contains(t, string(page.Body), "Not Found")
}

func TestFetchDecodesContentEncoding(t *testing.T) {
	const doc = "<html><title>Compressed</title></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(doc))
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := enc.EncodeAll([]byte(doc), nil)
	require.NoError(t, enc.Close())

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"gzip", "gzip", gz.Bytes()},
		{"zstd", "zstd", zs},
		{"identity", "", []byte(doc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var accept string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				accept = r.Header.Get("Accept-Encoding")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			page, err := newTestClient(t, nil).Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Contains(t, accept, "zstd")
			assert.Equal(t, doc, string(page.Body))
		})
	}
}

func TestFetchSniffsMissingContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("<!DOCTYPE html><html><head><title>x</title></head></html>"))
	}))
	defer srv.Close()

	page, err := newTestClient(t, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, page.IsHTML(), "sniffed %q", page.ContentType)
}

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	_, err := newTestClient(t, nil).Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestFetchBreakerOpensPerHost(t *testing.T) {
	c := newTestClient(t, func(o *Options) {
		o.Breaker = resilience.Settings{
			Cooldown: time.Minute,
			Trip:     func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
		}
	})

	// Nothing listens on port 1
	dead := "http://127.0.0.1:1/"
	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background(), dead)
		require.Error(t, err)
	}

	_, err := c.Fetch(context.Background(), dead)
	assert.ErrorIs(t, err, ErrHostUnavailable)
	assert.Equal(t, resilience.StateOpen, c.Breakers.Get("127.0.0.1:1").State())
}

func TestToUTF8(t *testing.T) {
	// "café" in windows-1252
	latin := []byte("<html><head><meta charset=\"windows-1252\"><title>caf\xe9</title></head></html>")
	assert.Contains(t, string(ToUTF8(latin, "text/html")), "café")

	utf := []byte("<html><title>café</title></html>")
	assert.Equal(t, utf, ToUTF8(utf, "text/html; charset=utf-8"))

	assert.Empty(t, ToUTF8(nil, ""))
}
