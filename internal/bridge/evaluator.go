package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/pending"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/monitoring"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
	"go.uber.org/zap"
)

// DefaultTimeout bounds how long Evaluate waits for a script-response
const DefaultTimeout = 800 * time.Millisecond

// Injector delivers a script to a labelled surface without waiting for it to run
type Injector interface {
	Inject(ctx context.Context, label, script string) error
}

// Recorder receives evaluation outcomes; *monitoring.Metrics implements it
type Recorder interface {
	RecordEvaluation(outcome string, duration time.Duration)
}

// Evaluator turns fire-and-forget injection into an awaitable, correlated
// call. It is safe for concurrent use.
type Evaluator struct {
	table    *pending.Table
	injector Injector
	timeout  time.Duration
	recorder Recorder
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator. A non-positive timeout selects
// DefaultTimeout; recorder may be nil.
func NewEvaluator(table *pending.Table, injector Injector, timeout time.Duration, recorder Recorder, logger *zap.Logger) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{
		table:    table,
		injector: injector,
		timeout:  timeout,
		recorder: recorder,
		logger:   logger,
	}
}

// Timeout returns the configured wait bound
func (e *Evaluator) Timeout() time.Duration { return e.timeout }

// Evaluate runs userScript as an expression in the surface labelled label and
// returns the JSON text of its value.
//
// Errors: *InjectionError when the surface cannot be reached, *ScriptError
// when the script throws, ErrTimeout when no response arrives within the
// bound, ErrChannelClosed when the table shuts down mid-wait, or the context
// error if ctx ends first.
func (e *Evaluator) Evaluate(ctx context.Context, label, userScript string) (string, error) {
	return e.evaluate(ctx, label, userScript, Wrap)
}

// EvaluateTrusted is Evaluate for a fixed expression built by this program.
// The expression is inlined into the harness instead of going through eval.
func (e *Evaluator) EvaluateTrusted(ctx context.Context, label, expression string) (string, error) {
	return e.evaluate(ctx, label, expression, WrapTrusted)
}

func (e *Evaluator) evaluate(ctx context.Context, label, script string, wrap func(id.CorrelationID, string) string) (string, error) {
	start := time.Now()
	cid := id.NewCorrelationID()

	ch, err := e.table.Register(cid)
	if err != nil {
		e.record(monitoring.OutcomeClosed, start)
		return "", fmt.Errorf("register evaluation: %w", err)
	}

	if err := e.injector.Inject(ctx, label, wrap(cid, script)); err != nil {
		e.table.Evict(cid)
		e.record(monitoring.OutcomeInjection, start)
		e.logger.Debug("injection failed",
			zap.String("label", label),
			zap.String("id", cid.String()),
			zap.Error(err),
		)
		return "", &InjectionError{Err: err}
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case c, ok := <-ch:
		if !ok {
			e.record(monitoring.OutcomeClosed, start)
			return "", ErrChannelClosed
		}
		if c.Failed {
			e.record(monitoring.OutcomeScriptError, start)
			return "", &ScriptError{Message: c.Err}
		}
		e.record(monitoring.OutcomeOK, start)
		return c.Value, nil

	case <-timer.C:
		e.table.Evict(cid)
		e.record(monitoring.OutcomeTimeout, start)
		e.logger.Debug("evaluation timed out",
			zap.String("label", label),
			zap.String("id", cid.String()),
			zap.Duration("timeout", e.timeout),
		)
		return "", ErrTimeout

	case <-ctx.Done():
		e.table.Evict(cid)
		e.record(monitoring.OutcomeCancelled, start)
		return "", fmt.Errorf("evaluation cancelled: %w", ctx.Err())
	}
}

func (e *Evaluator) record(outcome string, start time.Time) {
	if e.recorder != nil {
		e.recorder.RecordEvaluation(outcome, time.Since(start))
	}
}
