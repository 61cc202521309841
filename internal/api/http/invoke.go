package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/SilexsecureTeam/defcomm-browser/internal/commands"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InvokeResponse is the reply to POST /invoke/:command
type InvokeResponse struct {
	OK    bool   `json:"ok"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// ListCommands returns the command catalog
func (h *Handlers) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": h.Dispatcher.Definitions()})
}

// Invoke runs a command. Command failures are reported in the body with
// 200; only unknown commands and bad arguments change the status.
func (h *Handlers) Invoke(c *gin.Context) {
	name := c.Param("command")

	args := commands.Args{}
	if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, InvokeResponse{Error: "arguments must be a JSON object"})
		return
	}

	value, err := h.Dispatcher.Execute(c.Request.Context(), name, args)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, InvokeResponse{OK: true, Value: value})
	case errors.Is(err, commands.ErrUnknownCommand):
		c.JSON(http.StatusNotFound, InvokeResponse{Error: err.Error()})
	case errors.Is(err, commands.ErrInvalidArgs):
		c.JSON(http.StatusBadRequest, InvokeResponse{Error: err.Error()})
	default:
		h.Logger.Debug("command returned error", zap.String("command", name), zap.Error(err))
		c.JSON(http.StatusOK, InvokeResponse{Error: err.Error()})
	}
}
