// README: RSE counter handlers: activity recording, cumulative checks, reset and audit log.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vtc/internal/modules/compliance"
)

type RSEHandler struct {
	counters *compliance.CounterService
	now      func() time.Time
}

func NewRSEHandler(svc *compliance.CounterService) *RSEHandler {
	return &RSEHandler{counters: svc, now: time.Now}
}

type activityReq struct {
	Key      compliance.CounterKey `json:"key"`
	Activity compliance.Activity   `json:"activity"`
}

func (h *RSEHandler) RecordActivity(c *gin.Context) {
	var req activityReq
	if !bindJSON(c, &req) {
		return
	}
	counter, err := h.counters.RecordDrivingActivity(c.Request.Context(), req.Key, req.Activity)
	if err != nil {
		writeComplianceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, counter)
}

type checkReq struct {
	Key      compliance.CounterKey     `json:"key"`
	Proposed compliance.Activity       `json:"proposed"`
	Rules    *compliance.RuleOverrides `json:"rules"`
}

func (h *RSEHandler) Check(c *gin.Context) {
	var req checkReq
	if !bindJSON(c, &req) {
		return
	}
	chk, err := h.counters.CheckCumulativeCompliance(c.Request.Context(), req.Key, req.Proposed, compliance.ResolveRules(req.Rules))
	if err != nil {
		writeComplianceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, chk)
}

func (h *RSEHandler) LogDecision(c *gin.Context) {
	var req compliance.DecisionInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.counters.LogComplianceDecision(c.Request.Context(), req)
	if err != nil {
		writeComplianceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

func (h *RSEHandler) GetCounter(c *gin.Context) {
	counter, err := h.counters.GetCounter(c.Request.Context(), counterKey(c, h.now()))
	if err != nil {
		writeComplianceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, counter)
}

func (h *RSEHandler) ResetCounter(c *gin.Context) {
	if err := h.counters.ResetCounter(c.Request.Context(), counterKey(c, h.now())); err != nil {
		writeComplianceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RSEHandler) ListDecisions(c *gin.Context) {
	orgID := c.Query("organizationId")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "missing organizationId")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	ds, err := h.counters.ListDecisions(c.Request.Context(), orgID, c.Param("driverId"), limit)
	if err != nil {
		writeComplianceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ds)
}
