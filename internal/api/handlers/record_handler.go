package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/record-ledger/internal/api/middleware"
	"github.com/thanhnp/record-ledger/internal/ledger"
	"github.com/thanhnp/record-ledger/internal/models"
)

// DefaultRecordLimit caps the number of records returned by List
const DefaultRecordLimit = 100

// RecordHandler handles lookups of payload entries
type RecordHandler struct{}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler() *RecordHandler {
	return &RecordHandler{}
}

// Get returns the first record whose id field equals :id
// GET /api/v1/:ledger/records/:id
func (h *RecordHandler) Get(c *gin.Context) {
	rec, ok := middleware.Ledger(c).FindByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// List returns records, optionally those whose ?field= equals ?value=
// GET /api/v1/:ledger/records
func (h *RecordHandler) List(c *gin.Context) {
	limit := DefaultRecordLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	var pred ledger.Predicate
	if field := c.Query("field"); field != "" {
		pred = ledger.FieldEquals(field, c.Query("value"))
	}

	records := make([]models.Record, 0)
	for rec := range middleware.Ledger(c).Records(pred) {
		records = append(records, rec)
		if len(records) >= limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}
