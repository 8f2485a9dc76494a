package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/record-ledger/internal/api/middleware"
	"github.com/thanhnp/record-ledger/internal/ledger"
)

// BlockHandler handles block-related API requests
type BlockHandler struct {
	schemas map[string]PayloadValidator
}

// NewBlockHandler creates a new BlockHandler. schemas maps ledger names to
// the validator applied to appended payloads.
func NewBlockHandler(schemas map[string]PayloadValidator) *BlockHandler {
	if schemas == nil {
		schemas = make(map[string]PayloadValidator)
	}
	return &BlockHandler{
		schemas: schemas,
	}
}

// List returns the whole chain
// GET /api/v1/:ledger/blocks
func (h *BlockHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Ledger(c).Chain())
}

// GetByHash returns a block by its hash
// GET /api/v1/:ledger/blocks/:hash
func (h *BlockHandler) GetByHash(c *gin.Context) {
	block, err := middleware.Ledger(c).BlockByHash(c.Param("hash"))
	if err != nil {
		writeLookupError(c, err, "Block not found")
		return
	}
	c.JSON(http.StatusOK, block)
}

// GetByIndex returns a block by its index
// GET /api/v1/:ledger/blocks/index/:index
func (h *BlockHandler) GetByIndex(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
		return
	}

	block, err := middleware.Ledger(c).BlockAt(index)
	if err != nil {
		writeLookupError(c, err, "Block not found")
		return
	}
	c.JSON(http.StatusOK, block)
}

// GetLatest returns the latest block
// GET /api/v1/:ledger/blocks/latest
func (h *BlockHandler) GetLatest(c *gin.Context) {
	block, err := middleware.Ledger(c).Latest()
	if err != nil {
		writeLookupError(c, err, "No blocks found")
		return
	}
	c.JSON(http.StatusOK, block)
}

// Append adds the request body as the payload of a new block
// POST /api/v1/:ledger/blocks
func (h *BlockHandler) Append(c *gin.Context) {
	l := middleware.Ledger(c)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
		return
	}

	if validate, ok := h.schemas[l.Name()]; ok {
		if err := validate(body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
			return
		}
	}

	block, err := l.Append(json.RawMessage(body))
	if err != nil {
		var serr *ledger.SerializationError
		if errors.As(err, &serr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": serr.Error()})
			return
		}
		log.Printf("[%s] Append failed: %v", l.Name(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, block)
}

// Reset discards the chain and starts a new one from genesis
// DELETE /api/v1/:ledger/blocks
func (h *BlockHandler) Reset(c *gin.Context) {
	l := middleware.Ledger(c)
	if err := l.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	genesis, err := l.Latest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, genesis)
}

func writeLookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrEmptyLedger) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
