package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"go.uber.org/zap"
)

var ErrHostClosed = errors.New("headless host is closed")

// Host opens headless windows and keeps them attached to the surface registry
type Host struct {
	config   Config
	registry *surface.Registry
	bus      Publisher
	fetcher  Fetcher
	logger   *zap.Logger

	mu      sync.Mutex
	windows map[string]*Window
	closed  bool
}

// NewHost creates a host. fetcher may be nil when only OpenHTML is used.
func NewHost(config Config, registry *surface.Registry, bus Publisher, fetcher Fetcher, logger *zap.Logger) *Host {
	return &Host{
		config:   config,
		registry: registry,
		bus:      bus,
		fetcher:  fetcher,
		logger:   logger,
		windows:  make(map[string]*Window),
	}
}

// Open fetches rawURL and shows it in the window labelled label, creating
// the window if needed. Redirects are followed; the window's location is the
// final URL.
func (h *Host) Open(ctx context.Context, label, rawURL string) (*Window, error) {
	if h.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}
	page, err := h.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", rawURL, err)
	}
	return h.OpenHTML(ctx, label, page.URL, string(page.UTF8()))
}

// OpenHTML shows html as the document at pageURL in the window labelled label
func (h *Host) OpenHTML(ctx context.Context, label, pageURL, html string) (*Window, error) {
	dom, err := ParseDOM(pageURL, []byte(html))
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHostClosed
	}
	w, exists := h.windows[label]
	if exists && w.Closed() {
		// Closed from outside, e.g. replaced in the registry by another surface
		h.logger.Info("replacing closed headless window", zap.String("label", label))
		exists = false
	}
	if !exists {
		w = NewWindow(label, dom, h.bus, h.config, h.logger.Named("headless"))
		h.windows[label] = w
	}
	h.mu.Unlock()

	if exists {
		if err := w.Navigate(ctx, dom); err != nil {
			return nil, fmt.Errorf("navigate %s: %w", label, err)
		}
		h.logger.Info("headless window navigated", zap.String("label", label), zap.String("url", pageURL))
		return w, nil
	}

	h.registry.Attach(w)
	h.logger.Info("headless window opened", zap.String("label", label), zap.String("url", pageURL))
	return w, nil
}

// Window returns the open window labelled label
func (h *Host) Window(label string) (*Window, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[label]
	return w, ok
}

// CloseWindow detaches and closes the window labelled label
func (h *Host) CloseWindow(label string) error {
	h.mu.Lock()
	w, ok := h.windows[label]
	delete(h.windows, label)
	h.mu.Unlock()

	if !ok {
		return &surface.NotFoundError{Label: label}
	}
	h.registry.Detach(w)
	return w.Close()
}

// Close closes every window and rejects further opens
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	windows := h.windows
	h.windows = make(map[string]*Window)
	h.mu.Unlock()

	for _, w := range windows {
		h.registry.Detach(w)
		_ = w.Close()
	}
	return nil
}

// Stats returns host statistics
func (h *Host) Stats() map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	labels := make([]string, 0, len(h.windows))
	for label := range h.windows {
		labels = append(labels, label)
	}
	return map[string]interface{}{
		"windows": len(h.windows),
		"labels":  labels,
		"closed":  h.closed,
	}
}
