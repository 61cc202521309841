package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/monitoring"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/http/client"
	"go.uber.org/zap"
)

// ErrNoFallbackURL is returned when in-page extraction fails and the caller
// gave no URL to fetch instead
var ErrNoFallbackURL = errors.New("In-page metadata failed and no URL provided for fallback")

// Evaluator runs a fixed expression in a labelled surface and returns its
// JSON result; *bridge.Evaluator implements it
type Evaluator interface {
	EvaluateTrusted(ctx context.Context, label, expression string) (string, error)
}

// Fetcher retrieves a page over HTTP; *client.Client implements it
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*client.Page, error)
}

// Recorder receives resolution metrics; *monitoring.Metrics implements it
type Recorder interface {
	RecordMetadata(path string)
	ObserveFetch(duration time.Duration)
}

// Pipeline resolves page metadata in-page first, then over HTTP
type Pipeline struct {
	evaluator Evaluator
	fetcher   Fetcher
	recorder  Recorder
	logger    *zap.Logger
}

// NewPipeline creates a pipeline. recorder may be nil.
func NewPipeline(evaluator Evaluator, fetcher Fetcher, recorder Recorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		evaluator: evaluator,
		fetcher:   fetcher,
		recorder:  recorder,
		logger:    logger,
	}
}

// Resolve returns the metadata record of the page shown in the surface
// labelled label as JSON. The in-page result is returned verbatim. When it
// fails, pageURL is fetched instead; a nil pageURL makes the failure final.
func (p *Pipeline) Resolve(ctx context.Context, label string, pageURL *string) (string, error) {
	value, err := p.evaluator.EvaluateTrusted(ctx, label, ExtractionScript)
	if err == nil {
		p.record(monitoring.PathInPage)
		return value, nil
	}

	p.logger.Debug("in-page metadata failed",
		zap.String("label", label),
		zap.Error(err),
	)

	if pageURL == nil {
		p.record(monitoring.PathNoURL)
		return "", ErrNoFallbackURL
	}
	return p.fallback(ctx, *pageURL), nil
}

// ResolveSimple fetches and parses pageURL without touching any surface
func (p *Pipeline) ResolveSimple(ctx context.Context, pageURL string) string {
	return p.fallback(ctx, pageURL)
}

func (p *Pipeline) fallback(ctx context.Context, pageURL string) string {
	start := time.Now()
	page, err := p.fetcher.Fetch(ctx, pageURL)
	if p.recorder != nil {
		p.recorder.ObserveFetch(time.Since(start))
	}
	if err != nil {
		p.logger.Warn("metadata fetch failed",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		p.record(monitoring.PathEmpty)
		return Empty(pageURL).JSON()
	}

	rec, err := Parse(page.URL, page.Body, page.ContentType)
	if err != nil {
		p.logger.Warn("metadata parse failed",
			zap.String("url", page.URL),
			zap.Error(err),
		)
		p.record(monitoring.PathEmpty)
		return Empty(pageURL).JSON()
	}

	p.record(monitoring.PathFallback)
	return rec.JSON()
}

func (p *Pipeline) record(path string) {
	if p.recorder != nil {
		p.recorder.RecordMetadata(path)
	}
}
