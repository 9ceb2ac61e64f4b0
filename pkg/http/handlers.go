package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

const defaultStatsDays = 7

func badRequest(c *gin.Context, issues z.ZogIssueMap) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": common.IssueText(issues)})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

func (rs *RestfulServer) PostRegister(c *gin.Context) {
	deviceID, secret, err := rs.Meter.Device.RegisterDevice()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device_id": deviceID, "device_secret": secret})
}

type ClaimRequest struct {
	DeviceID string `json:"device_id" zog:"device_id"`
}

var claimRequestSchema = z.Struct(z.Shape{
	"DeviceID": z.String().Required().Match(meter.DeviceIDPattern),
})

func (rs *RestfulServer) PostClaim(c *gin.Context) {
	var req ClaimRequest
	if issues := claimRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		badRequest(c, issues)
		return
	}

	secret, ok, err := rs.Meter.Device.ClaimDevice(req.DeviceID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found or already claimed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device_id": req.DeviceID, "device_secret": secret})
}

type IngestRequest struct {
	DeviceID string               `json:"device_id"`
	Events   []models.IngestEvent `json:"events"`
}

var ingestRequestSchema = z.Struct(z.Shape{
	"DeviceID": z.String().
		Required(z.Message("Valid device_id required (hex, 8-64 chars)")).
		Match(meter.DeviceIDPattern, z.Message("Valid device_id required (hex, 8-64 chars)")),
})

func (rs *RestfulServer) PostIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON body required"})
		return
	}
	if issues := ingestRequestSchema.Validate(&req); issues != nil {
		badRequest(c, issues)
		return
	}

	if !rs.authorizeDevice(c, req.DeviceID) {
		return
	}

	if !rs.CheckDeviceLimiter(req.DeviceID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	result, err := rs.Meter.Event.Ingest(req.DeviceID, req.Events)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ingested":   result.Ingested,
		"new_alerts": len(result.NewAlerts),
	})
}

func (rs *RestfulServer) PostResync(c *gin.Context) {
	deleted, err := rs.Meter.Event.ClearDeviceEvents(c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "deleted": deleted})
}

func (rs *RestfulServer) GetStats(c *gin.Context) {
	deviceID := c.Param("device_id")
	days := meter.ClampDays(queryInt(c, "days", defaultStatsDays))

	tier, err := rs.Meter.Device.GetTier(deviceID)
	if err != nil {
		writeError(c, err)
		return
	}
	if tier == models.TierFree {
		days = min(days, meter.FreeTierMaxDays)
	}

	stats, err := rs.Meter.Stats.DeviceStats(deviceID, days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (rs *RestfulServer) GetOptimize(c *gin.Context) {
	days := meter.ClampDays(queryInt(c, "days", defaultStatsDays))

	suggestions, err := rs.Meter.Stats.OptimizationSuggestions(c.Param("device_id"), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (rs *RestfulServer) GetCommunity(c *gin.Context) {
	stats, err := rs.Meter.Stats.CommunityStats()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (rs *RestfulServer) GetAlerts(c *gin.Context) {
	deviceID := c.Param("device_id")

	tier, err := rs.Meter.Device.GetTier(deviceID)
	if err != nil {
		writeError(c, err)
		return
	}
	if tier == models.TierFree {
		c.JSON(http.StatusOK, gin.H{"alerts": []models.Alert{}, "count": 0, "tier_limited": true})
		return
	}

	var acknowledged *bool
	if v, ok := c.GetQuery("acknowledged"); ok {
		ack := false
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			ack = true
		}
		acknowledged = &ack
	}

	alerts, err := rs.Meter.Alert.GetDeviceAlerts(deviceID, acknowledged)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (rs *RestfulServer) PostAcknowledgeAlert(c *gin.Context) {
	alertID, err := strconv.ParseUint(c.Param("alert_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	ok, err := rs.Meter.Alert.AcknowledgeAlert(c.Param("device_id"), uint(alertID))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found or not owned by device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) GetAlertConfig(c *gin.Context) {
	cfg, err := rs.Meter.Alert.GetAlertConfig(c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type AlertConfigRequest struct {
	AlertType string  `json:"alert_type" zog:"alert_type"`
	Threshold float64 `json:"threshold" zog:"threshold"`
	Enabled   bool    `json:"enabled" zog:"enabled"`
}

var alertConfigRequestSchema = z.Struct(z.Shape{
	"AlertType": z.String().Required(),
	"Threshold": z.Float64().Required().GTE(0, z.Message("threshold must be a non-negative number")),
	"Enabled":   z.Bool().Default(true),
})

func (rs *RestfulServer) PostAlertConfig(c *gin.Context) {
	var req AlertConfigRequest
	if issues := alertConfigRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		badRequest(c, issues)
		return
	}

	if err := rs.Meter.Alert.SetAlertConfig(c.Param("device_id"), models.AlertType(req.AlertType), req.Threshold, req.Enabled); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) GetPricingConfig(c *gin.Context) {
	overrides, err := rs.Meter.Pricing.GetPricingConfig(c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": overrides})
}

type PricingConfigRequest struct {
	Model           string  `json:"model" zog:"model"`
	Provider        string  `json:"provider" zog:"provider"`
	InputPrice      float64 `json:"input_price" zog:"input_price"`
	OutputPrice     float64 `json:"output_price" zog:"output_price"`
	CacheReadPrice  float64 `json:"cache_read_price" zog:"cache_read_price"`
	CacheWritePrice float64 `json:"cache_write_price" zog:"cache_write_price"`
}

var pricingConfigRequestSchema = z.Struct(z.Shape{
	"Model":           z.String().Required(z.Message("model is required")),
	"Provider":        z.String(),
	"InputPrice":      z.Float64().Required().GTE(0),
	"OutputPrice":     z.Float64().Required().GTE(0),
	"CacheReadPrice":  z.Float64().Required().GTE(0),
	"CacheWritePrice": z.Float64().Required().GTE(0),
})

func (rs *RestfulServer) PostPricingConfig(c *gin.Context) {
	var req PricingConfigRequest
	if issues := pricingConfigRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		badRequest(c, issues)
		return
	}

	err := rs.Meter.Pricing.SetPricingConfig(c.Param("device_id"), &models.PricingOverride{
		Model:           req.Model,
		Provider:        req.Provider,
		InputPrice:      req.InputPrice,
		OutputPrice:     req.OutputPrice,
		CacheReadPrice:  req.CacheReadPrice,
		CacheWritePrice: req.CacheWritePrice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type PricingDeleteRequest struct {
	Model    string `json:"model" zog:"model"`
	Provider string `json:"provider" zog:"provider"`
}

var pricingDeleteRequestSchema = z.Struct(z.Shape{
	"Model":    z.String().Required(z.Message("model is required")),
	"Provider": z.String(),
})

func (rs *RestfulServer) DeletePricingConfig(c *gin.Context) {
	var req PricingDeleteRequest
	if issues := pricingDeleteRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		badRequest(c, issues)
		return
	}

	deleted, err := rs.Meter.Pricing.DeletePricingConfig(c.Param("device_id"), req.Model, req.Provider)
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Override not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) PostRecalculate(c *gin.Context) {
	updated, err := rs.Meter.Event.RecalculateDeviceCosts(c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "events_updated": updated})
}

func (rs *RestfulServer) GetPricingModels(c *gin.Context) {
	usage, err := rs.Meter.Pricing.DeviceModels(c.Param("device_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": usage})
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required().GTE(0),
	"burst": z.Int().Required().GTE(0),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req LimiterRequest
	if issues := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		badRequest(c, issues)
		return
	}

	rs.SetLimiter(deviceID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

type TierRequest struct {
	Tier string `json:"tier"`
}

var tierRequestSchema = z.Struct(z.Shape{
	"tier": z.String().Required().OneOf([]string{string(models.TierFree), string(models.TierPro)}),
})

func (rs *RestfulServer) PostTier(c *gin.Context) {
	var req TierRequest
	if issues := tierRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		badRequest(c, issues)
		return
	}

	if err := rs.Meter.Device.SetTier(c.Param("device_id"), models.Tier(req.Tier)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
