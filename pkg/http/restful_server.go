package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/metrics"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

type RestfulServer struct {
	Server           *gin.Engine
	Meter            *meter.Meter
	RateLimiterStore *meter.RateLimiterStore

	// Local serves /api/local from the session logs of this machine. Nil
	// disables the group.
	Local            *sessionlog.Cache
	AnomalyThreshold float64

	// AdminToken enables /admin when set.
	AdminToken string

	Now func() time.Time
}

func (rs *RestfulServer) GetLimiter(deviceID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(deviceID)
	}
}

func (rs *RestfulServer) CheckDeviceLimiter(deviceID string) bool {
	limiter := rs.GetLimiter(deviceID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(deviceID string, deviceRate float64, deviceBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
}

func (rs *RestfulServer) now() time.Time {
	if rs.Now != nil {
		return rs.Now().UTC()
	}
	return time.Now().UTC()
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Admin-Token"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	})
}

func (rs *RestfulServer) Setup() {
	rs.Server.Use(corsMiddleware(), metrics.PrometheusMiddleware())

	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", metrics.PrometheusHandler())

	api := rs.Server.Group("/api")
	{
		api.GET("/health", rs.HealthCheck)
		api.POST("/register", rs.PostRegister)
		api.POST("/claim", rs.PostClaim)
		api.POST("/ingest", rs.PostIngest)
		api.GET("/community", rs.GetCommunity)
	}

	devices := api.Group("/devices/:device_id", rs.requireDeviceID, rs.requireDeviceAuth, rs.limitDevice)
	{
		devices.POST("/resync", rs.PostResync)
		devices.GET("/stats", rs.GetStats)
		devices.GET("/optimize", rs.GetOptimize)

		devices.GET("/alerts", rs.GetAlerts)
		devices.POST("/alerts/:alert_id/acknowledge", rs.PostAcknowledgeAlert)
		devices.GET("/alerts/config", rs.GetAlertConfig)
		devices.POST("/alerts/config", rs.PostAlertConfig)

		devices.GET("/pricing/config", rs.GetPricingConfig)
		devices.POST("/pricing/config", rs.PostPricingConfig)
		devices.DELETE("/pricing/config", rs.DeletePricingConfig)
		devices.POST("/pricing/recalculate", rs.PostRecalculate)
		devices.GET("/pricing/models", rs.GetPricingModels)
	}

	if rs.Local != nil {
		local := api.Group("/local")
		{
			local.GET("/summary", rs.GetLocalSummary)
			local.GET("/costs", rs.GetLocalCosts)
			local.GET("/models", rs.GetLocalModels)
			local.GET("/projects", rs.GetLocalProjects)
			local.GET("/sessions", rs.GetLocalSessions)
			local.GET("/anomalies", rs.GetLocalAnomalies)
		}
	}

	if rs.AdminToken != "" {
		admin := rs.Server.Group("/admin", rs.requireAdmin)
		{
			admin.POST("/devices/:device_id/limiter", rs.requireDeviceID, rs.PostLimiter)
			admin.POST("/devices/:device_id/tier", rs.requireDeviceID, rs.PostTier)
		}
	}
}
