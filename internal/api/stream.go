package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// streamEvents pushes every accepted snapshot to the client as a
// server-sent event. The current snapshot, if any, is sent immediately so
// a late subscriber does not wait for the next poll.
func (h *Handler) streamEvents(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if snap, _ := h.poller.Snapshot(); snap != nil {
		c.SSEvent("snapshot", snap)
		c.Writer.Flush()
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
