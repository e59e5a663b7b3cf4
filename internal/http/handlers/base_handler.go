// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vtc/internal/modules/compliance"
	"vtc/internal/modules/pricing"
)

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []pricing.FieldError `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// bindJSON decodes the body and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writePricingError(c *gin.Context, err error) {
	var reqErr *pricing.RequestError
	switch {
	case errors.As(err, &reqErr):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: pricing.ErrInvalidRequest.Error(), Fields: reqErr.Fields})
	case errors.Is(err, pricing.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "request cancelled")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeComplianceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, compliance.ErrInvalidKey), errors.Is(err, compliance.ErrInvalidActivity):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// counterKey reads the key of a counter route: driver from the path, the rest from the query.
// Date defaults to today (UTC) and category to HEAVY.
func counterKey(c *gin.Context, now time.Time) compliance.CounterKey {
	cat := compliance.RegulatoryCategory(c.DefaultQuery("category", string(compliance.CategoryHeavy)))
	key := compliance.KeyFor(c.Query("organizationId"), c.Param("driverId"), now, cat)
	if d := c.Query("date"); d != "" {
		key.Date = d
	}
	return key
}
