// README: Stateless compliance handlers: mission validation and staffing alternatives.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vtc/internal/modules/compliance"
)

type ComplianceHandler struct{}

func NewComplianceHandler() *ComplianceHandler {
	return &ComplianceHandler{}
}

type validateReq struct {
	Input compliance.Input          `json:"input"`
	Rules *compliance.RuleOverrides `json:"rules"`
}

func (h *ComplianceHandler) Validate(c *gin.Context) {
	var req validateReq
	if !bindJSON(c, &req) {
		return
	}
	writeJSON(c, http.StatusOK, compliance.ValidateHeavyVehicleCompliance(req.Input, compliance.ResolveRules(req.Rules)))
}

type alternativesReq struct {
	Input    compliance.Input           `json:"input"`
	Rules    *compliance.RuleOverrides  `json:"rules"`
	Staffing *compliance.StaffingParams `json:"staffing"`
	Policy   string                     `json:"policy"`
}

type alternativesResp struct {
	Validation   compliance.Result            `json:"validation"`
	Alternatives compliance.GenerationResult  `json:"alternatives"`
	Selection    compliance.StaffingSelection `json:"selection"`
}

// Alternatives validates the mission, then generates and selects staffing plans.
func (h *ComplianceHandler) Alternatives(c *gin.Context) {
	var req alternativesReq
	if !bindJSON(c, &req) {
		return
	}
	params := compliance.DefaultStaffingParams()
	if req.Staffing != nil {
		params = *req.Staffing
	}
	res := compliance.ValidateHeavyVehicleCompliance(req.Input, compliance.ResolveRules(req.Rules))
	gen := compliance.GenerateAlternatives(res, params)
	writeJSON(c, http.StatusOK, alternativesResp{
		Validation:   res,
		Alternatives: gen,
		Selection:    compliance.SelectBestStaffingPlan(gen, compliance.ParsePolicy(req.Policy)),
	})
}
