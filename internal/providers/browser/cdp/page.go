package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/bytedance/sonic"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// BindingName is the Runtime binding the emit shim calls
const BindingName = "__defcommEmit"

const (
	// acceptTimeout bounds the compile round trip Eval waits for
	acceptTimeout = 5 * time.Second
	// evalTimeout bounds one background Runtime.evaluate call
	evalTimeout = 30 * time.Second
)

var (
	ErrPageClosed     = errors.New("cdp page closed")
	ErrScriptRejected = errors.New("script rejected by page")
)

// emitShim gives the page the event API the evaluation harness expects
const emitShim = `(function () {
  var root = window.__TAURI__ = window.__TAURI__ || {};
  root.event = root.event || {};
  root.event.emit = function (event, payload) {
    window.` + BindingName + `(JSON.stringify({ event: event, payload: payload === undefined ? null : payload }));
    return Promise.resolve();
  };
})();`

// Publisher receives page events; *events.Bus implements it
type Publisher interface {
	Publish(ev events.Event)
}

type bindingCall struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Page is one DevTools target attached as a window surface
type Page struct {
	label  string
	page   *rod.Page
	bus    Publisher
	logger *zap.Logger

	cancel    context.CancelFunc
	removeNew func() error

	mu     sync.Mutex
	closed bool
}

func newPage(label string, rp *rod.Page, bus Publisher, logger *zap.Logger) (*Page, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Page{
		label:  label,
		page:   rp,
		bus:    bus,
		logger: logger.With(zap.String("label", label)),
		cancel: cancel,
	}

	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(rp); err != nil {
		cancel()
		return nil, fmt.Errorf("add binding: %w", err)
	}

	wait := rp.Context(ctx).EachEvent(func(ev *proto.RuntimeBindingCalled) {
		if ev.Name == BindingName {
			p.onBinding(ev.Payload)
		}
	})
	go wait()

	remove, err := rp.EvalOnNewDocument(emitShim)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("install emit shim: %w", err)
	}
	p.removeNew = remove

	// The current document predates EvalOnNewDocument
	if _, err := (proto.RuntimeEvaluate{Expression: emitShim}).Call(rp); err != nil {
		p.logger.Debug("emit shim on current document failed", zap.Error(err))
	}
	return p, nil
}

func (p *Page) Label() string      { return p.label }
func (p *Page) Kind() surface.Kind { return surface.KindWindow }

// Eval returns once Chrome has compiled script in the page, then runs it
// with Runtime.evaluate without waiting for it to finish. A closed target or
// a syntax error is reported here; errors thrown while running are not.
func (p *Page) Eval(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPageClosed
	}

	rp := p.page.Context(ctx).Timeout(acceptTimeout)
	compiled, err := proto.RuntimeCompileScript{Expression: script, PersistScript: false}.Call(rp)
	rp.CancelTimeout()
	if err != nil {
		return fmt.Errorf("compile script: %w", err)
	}
	if compiled.ExceptionDetails != nil {
		return fmt.Errorf("%w: %s", ErrScriptRejected, exceptionMessage(compiled.ExceptionDetails))
	}

	go func() {
		rp := p.page.Timeout(evalTimeout)
		defer rp.CancelTimeout()

		res, err := proto.RuntimeEvaluate{Expression: script}.Call(rp)
		if err != nil {
			p.logger.Warn("runtime evaluate failed", zap.Error(err))
			return
		}
		if res.ExceptionDetails != nil {
			p.logger.Warn("uncaught script error", zap.String("text", exceptionMessage(res.ExceptionDetails)))
		}
	}()
	return nil
}

func exceptionMessage(d *proto.RuntimeExceptionDetails) string {
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}

// Navigate loads url and waits for the load event
func (p *Page) Navigate(ctx context.Context, url string) error {
	rp := p.page.Context(ctx)
	if err := rp.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return rp.WaitLoad()
}

// Close closes the target
func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	if p.removeNew != nil {
		_ = p.removeNew()
	}
	return p.page.Close()
}

func (p *Page) onBinding(raw string) {
	ev, err := parseBinding(raw)
	if err != nil {
		p.logger.Debug("dropping malformed binding call", zap.Error(err))
		return
	}
	ev.Source = p.label
	p.bus.Publish(ev)
}

// parseBinding decodes the shim's {event, payload} envelope
func parseBinding(raw string) (events.Event, error) {
	var call bindingCall
	if err := sonic.UnmarshalString(raw, &call); err != nil {
		return events.Event{}, fmt.Errorf("decode binding payload: %w", err)
	}
	if call.Event == "" {
		return events.Event{}, errors.New("binding payload has no event name")
	}
	payload := call.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return events.Event{Topic: call.Event, Payload: payload}, nil
}
