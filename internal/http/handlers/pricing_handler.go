// README: Pricing handlers: quote calculation and manual price override.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vtc/internal/modules/pricing"
)

// ContextLoader builds the pricing context of an organization's request.
type ContextLoader interface {
	LoadContext(ctx context.Context, orgID string, req pricing.Request) (pricing.Context, error)
}

type PricingHandler struct {
	calc   *pricing.Calculator
	loader ContextLoader
	live   pricing.DataSources
}

// NewPricingHandler wires the calculator. loader may be nil when no database is configured;
// live is used for ?live=true requests.
func NewPricingHandler(calc *pricing.Calculator, loader ContextLoader, live pricing.DataSources) *PricingHandler {
	return &PricingHandler{calc: calc, loader: loader, live: live}
}

type calculateReq struct {
	Request pricing.Request `json:"request"`
	Context pricing.Context `json:"context"`
}

func (h *PricingHandler) sources(c *gin.Context) pricing.DataSources {
	if c.Query("live") == "true" {
		return h.live
	}
	return pricing.EstimateSources()
}

// Calculate prices a request against a caller-supplied context.
func (h *PricingHandler) Calculate(c *gin.Context) {
	var req calculateReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.calc.Calculate(c.Request.Context(), req.Request, req.Context, h.sources(c))
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// Quote loads the organization's context from the repository, then prices the request.
func (h *PricingHandler) Quote(c *gin.Context) {
	if h.loader == nil {
		writeError(c, http.StatusServiceUnavailable, "pricing repository not configured")
		return
	}
	var req pricing.Request
	if !bindJSON(c, &req) {
		return
	}
	pc, err := h.loader.LoadContext(c.Request.Context(), c.Param("orgId"), req)
	if err != nil {
		writePricingError(c, err)
		return
	}
	res, err := h.calc.Calculate(c.Request.Context(), req, pc, h.sources(c))
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type overrideReq struct {
	Result               pricing.Result `json:"result"`
	NewPrice             float64        `json:"newPrice"`
	Reason               string         `json:"reason"`
	MinimumMarginPercent *float64       `json:"minimumMarginPercent"`
}

type overrideResp struct {
	Success bool            `json:"success"`
	Result  *pricing.Result `json:"result,omitempty"`
	*pricing.OverrideError
}

func (h *PricingHandler) Override(c *gin.Context) {
	var req overrideReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := pricing.ApplyPriceOverride(req.Result, req.NewPrice, req.Reason, req.MinimumMarginPercent)
	var oe *pricing.OverrideError
	switch {
	case errors.As(err, &oe):
		writeJSON(c, http.StatusUnprocessableEntity, overrideResp{OverrideError: oe})
	case err != nil:
		writePricingError(c, err)
	default:
		writeJSON(c, http.StatusOK, overrideResp{Success: true, Result: &res})
	}
}
