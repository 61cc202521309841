package cdp

import (
	"context"
	"fmt"
	"sync"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Browser owns a DevTools connection and the pages opened through it
type Browser struct {
	browser  *rod.Browser
	registry *surface.Registry
	bus      Publisher
	logger   *zap.Logger

	mu    sync.Mutex
	pages map[string]*Page
}

// Connect attaches to the browser at controlURL
func Connect(ctx context.Context, controlURL string, registry *surface.Registry, bus Publisher, logger *zap.Logger) (*Browser, error) {
	rb := rod.New().ControlURL(controlURL).Context(ctx)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	return &Browser{
		browser:  rb,
		registry: registry,
		bus:      bus,
		logger:   logger,
		pages:    make(map[string]*Page),
	}, nil
}

// Open creates a target at url and attaches it under label, replacing any
// surface already holding the label
func (b *Browser) Open(ctx context.Context, label, url string) (*Page, error) {
	rp, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	// Drop the request context so later calls outlive it
	rp = rp.Context(context.Background())

	p, err := newPage(label, rp, b.bus, b.logger)
	if err != nil {
		_ = rp.Close()
		return nil, err
	}
	if url != "" {
		if err := p.Navigate(ctx, url); err != nil {
			_ = p.Close()
			return nil, err
		}
	}

	b.mu.Lock()
	b.pages[label] = p
	b.mu.Unlock()
	b.registry.Attach(p)

	b.logger.Info("cdp page attached", zap.String("label", label), zap.String("url", url))
	return p, nil
}

// ClosePage detaches and closes the page under label
func (b *Browser) ClosePage(label string) error {
	b.mu.Lock()
	p, ok := b.pages[label]
	delete(b.pages, label)
	b.mu.Unlock()
	if !ok {
		return &surface.NotFoundError{Label: label}
	}
	b.registry.Detach(p)
	return p.Close()
}

// Close closes every page opened through b. The browser process itself
// belongs to whoever launched it and keeps running.
func (b *Browser) Close() error {
	b.mu.Lock()
	pages := b.pages
	b.pages = make(map[string]*Page)
	b.mu.Unlock()

	for _, p := range pages {
		b.registry.Detach(p)
		_ = p.Close()
	}
	return nil
}
