// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vtc/internal/http/handlers"
	"vtc/internal/http/middleware"
	"vtc/internal/modules/compliance"
	"vtc/internal/modules/pricing"
)

type RouterDeps struct {
	Log        *zap.Logger
	Calculator *pricing.Calculator
	// Contexts may be nil; the organization quote route then answers 503.
	Contexts    handlers.ContextLoader
	LiveSources pricing.DataSources
	Counters    *compliance.CounterService
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	pricingHandler := handlers.NewPricingHandler(deps.Calculator, deps.Contexts, deps.LiveSources)
	api.POST("/pricing/calculate", pricingHandler.Calculate)
	api.POST("/pricing/override", pricingHandler.Override)
	api.POST("/organizations/:orgId/quotes", pricingHandler.Quote)

	complianceHandler := handlers.NewComplianceHandler()
	api.POST("/compliance/validate", complianceHandler.Validate)
	api.POST("/compliance/alternatives", complianceHandler.Alternatives)

	rseHandler := handlers.NewRSEHandler(deps.Counters)
	rse := api.Group("/rse")
	rse.POST("/activity", rseHandler.RecordActivity)
	rse.POST("/check", rseHandler.Check)
	rse.POST("/decisions", rseHandler.LogDecision)
	rse.GET("/counters/:driverId", rseHandler.GetCounter)
	rse.DELETE("/counters/:driverId", rseHandler.ResetCounter)
	rse.GET("/decisions/:driverId", rseHandler.ListDecisions)

	return r
}
