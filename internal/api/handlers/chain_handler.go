package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/record-ledger/internal/api/middleware"
	"github.com/thanhnp/record-ledger/internal/notifier"
)

// ChainHandler handles whole-chain API requests
type ChainHandler struct {
	notifier notifier.BlockNotifier
}

// NewChainHandler creates a new ChainHandler
func NewChainHandler(n notifier.BlockNotifier) *ChainHandler {
	return &ChainHandler{
		notifier: n,
	}
}

// Validate reports whether the chain is intact. An invalid chain is still a 200:
// the result is the answer.
// GET /api/v1/:ledger/validate
func (h *ChainHandler) Validate(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Ledger(c).Validate())
}

// Stream sends appended blocks as server-sent events until the client goes away
// GET /api/v1/:ledger/stream
func (h *ChainHandler) Stream(c *gin.Context) {
	blocks, cancel := h.notifier.Subscribe(c.Param("ledger"))
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case block, ok := <-blocks:
			if !ok {
				return false
			}
			c.SSEvent("block", block)
			return true
		case <-done:
			return false
		}
	})
}
