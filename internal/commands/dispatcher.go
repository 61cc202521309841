package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/monitoring"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/tracing"
	"go.uber.org/zap"
)

type entry struct {
	def     Definition
	handler Handler
}

// Dispatcher routes invocations by command name
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]entry

	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher. tracer and metrics may be nil.
func NewDispatcher(tracer *tracing.Tracer, metrics *monitoring.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		commands: make(map[string]entry),
		tracer:   tracer,
		metrics:  metrics,
		logger:   logger,
	}
}

// Register adds a command, replacing any earlier one with the same name
func (d *Dispatcher) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("command %s has no handler", def.Name)
	}

	d.mu.Lock()
	d.commands[def.Name] = entry{def: def, handler: handler}
	d.mu.Unlock()
	return nil
}

// Definitions lists registered commands sorted by name
func (d *Dispatcher) Definitions() []Definition {
	d.mu.RLock()
	defs := make([]Definition, 0, len(d.commands))
	for _, e := range d.commands {
		defs = append(defs, e.def)
	}
	d.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs the named command
func (d *Dispatcher) Execute(ctx context.Context, name string, args Args) (string, error) {
	d.mu.RLock()
	e, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if args == nil {
		args = Args{}
	}

	// StartSpan works on a nil tracer; Finish then discards the span
	span, ctx := d.tracer.StartSpan(ctx, "command."+name)
	span.SetTag("command", name)
	timer := monitoring.NewTimer(d.metrics, name)

	out, err := e.handler(ctx, args)

	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrInvalidArgs) {
			status = "invalid"
		}
		span.SetError(err)
		d.logger.Debug("command failed",
			zap.String("command", name),
			zap.String("trace", tracing.Format(ctx)),
			zap.Error(err),
		)
	}
	timer.Stop(status)
	d.tracer.Finish(span)
	return out, err
}
