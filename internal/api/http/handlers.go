package http

import (
	"net/http"
	"time"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/commands"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/monitoring"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/resilience"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/browser/cdp"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/browser/sandbox"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "defcomm-browser"

// Publisher receives events posted over HTTP; *events.Bus implements it
type Publisher interface {
	Publish(ev events.Event)
}

// Deps bundles the components the handlers serve. Host, CDP and Breakers
// are optional.
type Deps struct {
	Dispatcher *commands.Dispatcher
	Registry   *surface.Registry
	Host       *sandbox.Host
	CDP        *cdp.Browser
	Bus        Publisher
	Breakers   *resilience.Group
	Metrics    *monitoring.Metrics
	Logger     *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Deps
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handlers{Deps: deps, started: time.Now()}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/commands", h.ListCommands)
	r.POST("/invoke/:command", h.Invoke)

	r.GET("/surfaces", h.ListSurfaces)
	r.POST("/surfaces/headless", h.OpenHeadless)
	r.DELETE("/surfaces/headless/:label", h.CloseHeadless)
	r.GET("/surfaces/headless/:label/console", h.HeadlessConsole)
	r.POST("/surfaces/cdp", h.OpenCDP)
	r.DELETE("/surfaces/cdp/:label", h.CloseCDP)

	r.POST("/events/:topic", h.PublishEvent)
	r.POST("/logs", h.StreamLogs)
	r.GET("/metrics/json", h.MetricsJSON)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":         "healthy",
		"uptime_seconds": time.Since(h.started).Seconds(),
		"surfaces":       len(h.Registry.List()),
		"metrics":        h.Metrics.GetSnapshot(),
		"cdp":            gin.H{"connected": h.CDP != nil},
	}
	if h.Host != nil {
		body["headless"] = h.Host.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// MetricsJSON returns the running totals and per-host breaker states
func (h *Handlers) MetricsJSON(c *gin.Context) {
	breakers := gin.H{}
	if h.Breakers != nil {
		for host, state := range h.Breakers.States() {
			breakers[host] = state.String()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().Unix(),
		"backend":   h.Metrics.GetSnapshot(),
		"breakers":  breakers,
	})
}
