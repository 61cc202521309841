// Package id provides centralized ID generation for the backend.
//
// Two formats are in use:
//   - Correlation IDs: random UUIDv4 strings (128 bits of entropy, no ordering).
//     They key the pending script-response table and are never reused.
//   - Everything else (surface connections, trace and span IDs): prefixed ULIDs,
//     k-sortable so log lines and listings read in creation order.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CorrelationID matches an asynchronous script result to its waiting caller
type CorrelationID string

// ConnectionID identifies one attached browsing-surface connection
type ConnectionID string

// TraceID identifies a request trace
type TraceID string

// SpanID identifies one span within a trace
type SpanID string

const (
	ConnectionPrefix = "conn"
	TracePrefix      = "trace"
	SpanPrefix       = "span"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewCorrelationID mints a fresh random correlation identifier
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.NewString())
}

// NewConnectionID generates a new surface connection ID
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().GenerateWithPrefix(ConnectionPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

func (id CorrelationID) String() string { return string(id) }
func (id ConnectionID) String() string  { return string(id) }
func (id TraceID) String() string       { return string(id) }
func (id SpanID) String() string        { return string(id) }

// IsCorrelationID reports whether s parses as a UUID
func IsCorrelationID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
