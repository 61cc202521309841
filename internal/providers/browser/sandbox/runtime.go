package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Window is a headless browsing surface: a goja runtime bound to a static
// document. Scripts run one at a time on the window's own goroutine.
type Window struct {
	label  string
	config Config
	bus    Publisher
	logger *zap.Logger

	vm  *goja.Runtime // owned by the run goroutine
	dom *DOM

	queue     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex
}

// NewWindow creates a window showing dom and starts its script loop
func NewWindow(label string, dom *DOM, bus Publisher, config Config, logger *zap.Logger) *Window {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.ConsoleLimit <= 0 {
		config.ConsoleLimit = DefaultConfig().ConsoleLimit
	}

	w := &Window{
		label:  label,
		config: config,
		bus:    bus,
		logger: logger.With(zap.String("label", label)),
		vm:     goja.New(),
		dom:    dom,
		queue:  make(chan func(), config.QueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	w.setupGlobals()
	go w.loop()
	return w
}

func (w *Window) Label() string      { return w.label }
func (w *Window) Kind() surface.Kind { return surface.KindWindow }

// Eval queues script and returns without waiting for it to run
func (w *Window) Eval(ctx context.Context, script string) error {
	return w.submit(ctx, func() { w.run(script) })
}

// Navigate swaps the window's document. It waits until scripts queued
// earlier have run.
func (w *Window) Navigate(ctx context.Context, dom *DOM) error {
	applied := make(chan struct{})
	err := w.submit(ctx, func() {
		w.dom = dom
		w.bindDocument()
		close(applied)
	})
	if err != nil {
		return err
	}

	select {
	case <-applied:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Console returns the retained console output
func (w *Window) Console() []LogEntry {
	w.consoleMu.Lock()
	defer w.consoleMu.Unlock()
	return append([]LogEntry(nil), w.console...)
}

// Closed reports whether Close has been called
func (w *Window) Closed() bool {
	select {
	case <-w.quit:
		return true
	default:
		return false
	}
}

// Close stops the script loop, interrupting any running script
func (w *Window) Close() error {
	w.closeOnce.Do(func() {
		close(w.quit)
		w.vm.Interrupt("window closed")
	})
	<-w.done
	return nil
}

func (w *Window) submit(ctx context.Context, job func()) error {
	select {
	case <-w.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case w.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Window) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case job := <-w.queue:
			select {
			case <-w.quit:
				return
			default:
			}
			job()
		}
	}
}

// run executes one script under the configured timeout
func (w *Window) run(script string) {
	var mu sync.Mutex
	finished := false
	timer := time.AfterFunc(w.config.Timeout, func() {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			w.vm.Interrupt("execution timeout exceeded")
		}
	})
	_, err := w.vm.RunString(script)
	mu.Lock()
	finished = true
	mu.Unlock()
	timer.Stop()
	w.vm.ClearInterrupt()

	if err == nil {
		return
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		w.logger.Warn("script interrupted", zap.Any("reason", interrupted.Value()))
		return
	}
	w.logger.Warn("uncaught script error", zap.Error(err))
}

// setupGlobals configures global objects
func (w *Window) setupGlobals() {
	vm := w.vm

	// Remove host globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		vm.Set(name, goja.Undefined())
	}

	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(level, w.makeConsoleFunc(level))
	}
	vm.Set("console", console)

	// Timers never fire in a static document
	vm.Set("setTimeout", func(goja.FunctionCall) goja.Value { return vm.ToValue(0) })
	vm.Set("setInterval", func(goja.FunctionCall) goja.Value { return vm.ToValue(0) })
	vm.Set("clearTimeout", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	vm.Set("clearInterval", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	vm.Set("URL", w.urlConstructor)

	if w.config.EventAPI {
		event := vm.NewObject()
		event.Set("emit", w.emit)
		tauri := vm.NewObject()
		tauri.Set("event", event)
		vm.Set("__TAURI__", tauri)
	}

	w.bindDocument()
}

// emit implements window.__TAURI__.event.emit(topic, payload)
func (w *Window) emit(call goja.FunctionCall) goja.Value {
	topic := call.Argument(0).String()

	payload := "null"
	stringify, ok := goja.AssertFunction(w.vm.Get("JSON").ToObject(w.vm).Get("stringify"))
	if ok {
		v, err := stringify(goja.Undefined(), call.Argument(1))
		if err != nil {
			panic(w.vm.NewGoError(err))
		}
		if !goja.IsUndefined(v) {
			payload = v.String()
		}
	}

	w.bus.Publish(events.Event{
		Topic:   topic,
		Payload: []byte(payload),
		Source:  w.label,
	})
	return goja.Undefined()
}

// makeConsoleFunc creates a console function
func (w *Window) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		w.consoleMu.Lock()
		w.console = append(w.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		if over := len(w.console) - w.config.ConsoleLimit; over > 0 {
			w.console = append([]LogEntry(nil), w.console[over:]...)
		}
		w.consoleMu.Unlock()

		w.logger.Debug("console", zap.String("level", level), zap.String("message", msg))
		return goja.Undefined()
	}
}

func (w *Window) throwTypeError(format string, args ...interface{}) {
	panic(w.vm.NewTypeError("%s", fmt.Sprintf(format, args...)))
}
