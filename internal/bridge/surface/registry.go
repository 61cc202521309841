// Package surface tracks the browsing surfaces scripts can be delivered to.
//
// Content surfaces are live webviews connected to the backend. Window surfaces
// are driven by the backend itself (headless runtime or DevTools page). Lookup
// by label consults content surfaces first, then window surfaces.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrSurfaceNotFound is returned when no surface carries the requested label
var ErrSurfaceNotFound = errors.New("surface not found")

// Kind distinguishes the two surface families
type Kind string

const (
	KindContent Kind = "content"
	KindWindow  Kind = "window"
)

// Surface accepts scripts for fire-and-forget execution
type Surface interface {
	Label() string
	Kind() Kind
	// Eval submits script and returns once the surface accepted it
	Eval(ctx context.Context, script string) error
	Close() error
}

// Info describes an attached surface
type Info struct {
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// NotFoundError names the label that failed to resolve
type NotFoundError struct {
	Label string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Webview/WebviewWindow '%s' not found.", e.Label)
}

func (e *NotFoundError) Unwrap() error { return ErrSurfaceNotFound }

// Observer is told the number of attached surfaces of a kind after a change
type Observer func(kind Kind, n int)

// Registry holds attached surfaces keyed by kind and label
type Registry struct {
	mu       sync.RWMutex
	surfaces map[Kind]map[string]Surface
	observe  Observer
	logger   *zap.Logger
}

// NewRegistry creates an empty registry. observe may be nil.
func NewRegistry(logger *zap.Logger, observe Observer) *Registry {
	return &Registry{
		surfaces: map[Kind]map[string]Surface{
			KindContent: {},
			KindWindow:  {},
		},
		observe: observe,
		logger:  logger,
	}
}

// Attach registers s under its label. A surface of the same kind already
// holding the label is replaced and closed.
func (r *Registry) Attach(s Surface) {
	r.mu.Lock()
	byLabel := r.surfaces[s.Kind()]
	if byLabel == nil {
		byLabel = make(map[string]Surface)
		r.surfaces[s.Kind()] = byLabel
	}
	old := byLabel[s.Label()]
	byLabel[s.Label()] = s
	n := len(byLabel)
	r.mu.Unlock()

	if old != nil && old != s {
		r.logger.Info("surface replaced", zap.String("label", s.Label()), zap.String("kind", string(s.Kind())))
		if err := old.Close(); err != nil {
			r.logger.Debug("closing replaced surface", zap.String("label", s.Label()), zap.Error(err))
		}
	} else {
		r.logger.Info("surface attached", zap.String("label", s.Label()), zap.String("kind", string(s.Kind())))
	}
	r.notify(s.Kind(), n)
}

// Detach removes s if it is still the surface registered under its label
func (r *Registry) Detach(s Surface) bool {
	r.mu.Lock()
	byLabel := r.surfaces[s.Kind()]
	current, ok := byLabel[s.Label()]
	if !ok || current != s {
		r.mu.Unlock()
		return false
	}
	delete(byLabel, s.Label())
	n := len(byLabel)
	r.mu.Unlock()

	r.logger.Info("surface detached", zap.String("label", s.Label()), zap.String("kind", string(s.Kind())))
	r.notify(s.Kind(), n)
	return true
}

// Lookup finds the surface for label, content surfaces first
func (r *Registry) Lookup(label string) (Surface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.surfaces[KindContent][label]; ok {
		return s, nil
	}
	if s, ok := r.surfaces[KindWindow][label]; ok {
		return s, nil
	}
	return nil, &NotFoundError{Label: label}
}

// Inject delivers script to the surface labelled label. It returns once the
// surface has accepted the script, not once the script has run.
func (r *Registry) Inject(ctx context.Context, label, script string) error {
	s, err := r.Lookup(label)
	if err != nil {
		return err
	}
	return s.Eval(ctx, script)
}

// List returns attached surfaces ordered by kind then label
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0)
	for kind, byLabel := range r.surfaces {
		for label := range byLabel {
			out = append(out, Info{Label: label, Kind: kind})
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// CloseAll detaches and closes every surface
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var all []Surface
	for kind, byLabel := range r.surfaces {
		for _, s := range byLabel {
			all = append(all, s)
		}
		r.surfaces[kind] = make(map[string]Surface)
	}
	r.mu.Unlock()

	for _, s := range all {
		if err := s.Close(); err != nil {
			r.logger.Debug("closing surface", zap.String("label", s.Label()), zap.Error(err))
		}
	}
	r.notify(KindContent, 0)
	r.notify(KindWindow, 0)
}

func (r *Registry) notify(kind Kind, n int) {
	if r.observe != nil {
		r.observe(kind, n)
	}
}
