package http

import (
	"errors"
	"net/http"

	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// OpenSurfaceRequest opens a headless window or DevTools page
type OpenSurfaceRequest struct {
	Label string `json:"label" binding:"required"`
	URL   string `json:"url"`
	HTML  string `json:"html"` // headless only; loaded as the document at URL
}

func bindSurfaceRequest(c *gin.Context, req *OpenSurfaceRequest) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return err
	}
	return utils.ValidateLabel(req.Label)
}

// ListSurfaces lists attached surfaces
func (h *Handlers) ListSurfaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"surfaces": h.Registry.List()})
}

// OpenHeadless opens a headless window, fetching URL unless HTML is given
func (h *Handlers) OpenHeadless(c *gin.Context) {
	if h.Host == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "headless surfaces disabled"})
		return
	}

	var req OpenSurfaceRequest
	if err := bindSurfaceRequest(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	ctx := c.Request.Context()
	var err error
	if req.HTML != "" {
		_, err = h.Host.OpenHTML(ctx, req.Label, req.URL, req.HTML)
	} else {
		_, err = h.Host.Open(ctx, req.Label, req.URL)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, surface.Info{Label: req.Label, Kind: surface.KindWindow})
}

// CloseHeadless closes a headless window
func (h *Handlers) CloseHeadless(c *gin.Context) {
	if h.Host == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "headless surfaces disabled"})
		return
	}
	if err := h.Host.CloseWindow(c.Param("label")); err != nil {
		writeSurfaceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HeadlessConsole returns a headless window's captured console output
func (h *Handlers) HeadlessConsole(c *gin.Context) {
	if h.Host == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "headless surfaces disabled"})
		return
	}
	label := c.Param("label")
	w, ok := h.Host.Window(label)
	if !ok {
		writeSurfaceError(c, &surface.NotFoundError{Label: label})
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": label, "entries": w.Console()})
}

// OpenCDP opens a DevTools page at URL
func (h *Handlers) OpenCDP(c *gin.Context) {
	if h.CDP == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cdp surfaces disabled"})
		return
	}

	var req OpenSurfaceRequest
	if err := bindSurfaceRequest(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.CDP.Open(c.Request.Context(), req.Label, req.URL); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, surface.Info{Label: req.Label, Kind: surface.KindWindow})
}

// CloseCDP closes a DevTools page
func (h *Handlers) CloseCDP(c *gin.Context) {
	if h.CDP == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cdp surfaces disabled"})
		return
	}
	if err := h.CDP.ClosePage(c.Param("label")); err != nil {
		writeSurfaceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeSurfaceError(c *gin.Context, err error) {
	if errors.Is(err, surface.ErrSurfaceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
