package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/http/client"
)

var (
	ErrClosed    = errors.New("headless window closed")
	ErrQueueFull = errors.New("headless window script queue full")
)

// Config defines headless window configuration
type Config struct {
	Timeout      time.Duration // Per-script execution timeout
	QueueSize    int           // Scripts accepted but not yet run
	ConsoleLimit int           // Console entries retained
	EventAPI     bool          // Install window.__TAURI__.event.emit
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error, debug
	Message string    // Joined arguments
	Time    time.Time // Timestamp
}

// Publisher receives events emitted by page scripts
type Publisher interface {
	Publish(ev events.Event)
}

// Fetcher loads documents for navigation; *client.Client implements it
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*client.Page, error)
}

// DefaultConfig returns the default headless window configuration
func DefaultConfig() Config {
	return Config{
		Timeout:      2 * time.Second,
		QueueSize:    64,
		ConsoleLimit: 200,
		EventAPI:     true,
	}
}
