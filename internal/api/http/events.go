package http

import (
	"io"
	"net/http"

	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// PublishEvent publishes the raw JSON body on the bus under :topic.
// ?source= names the emitting surface.
func (h *Handlers) PublishEvent(c *gin.Context) {
	topic := c.Param("topic")
	if err := utils.ValidateTopic(topic); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, utils.MaxEventSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(body) == 0 {
		body = []byte("null")
	}
	if err := utils.EventValidator().ValidateJSON(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be JSON: " + err.Error()})
		return
	}

	h.Bus.Publish(events.Event{
		Topic:   topic,
		Payload: body,
		Source:  c.Query("source"),
	})
	c.Status(http.StatusAccepted)
}
