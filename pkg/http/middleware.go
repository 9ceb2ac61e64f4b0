package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
)

const bearerPrefix = "Bearer "

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

// writeError maps meter errors onto status codes. Anything unknown is a 500
// and gets logged.
func writeError(c *gin.Context, err error) {
	var tierErr *meter.TierLimitError
	switch {
	case errors.As(err, &tierErr):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":           "Free tier limited to 1 project",
			"allowed_project": tierErr.AllowedProject,
		})
	case errors.Is(err, meter.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, meter.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, meter.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		logger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// authorizeDevice answers 401/403 itself and returns false when the caller
// may not act for deviceID.
func (rs *RestfulServer) authorizeDevice(c *gin.Context, deviceID string) bool {
	secret, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Authorization required",
			"hint":  "Add header: Authorization: Bearer <device_secret>",
		})
		return false
	}

	valid, err := rs.Meter.Device.VerifyDeviceSecret(deviceID, secret)
	if err != nil {
		writeError(c, err)
		return false
	}
	if !valid {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid device secret"})
		return false
	}
	return true
}

func (rs *RestfulServer) requireDeviceID(c *gin.Context) {
	if !meter.ValidDeviceID(c.Param("device_id")) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}
	c.Next()
}

func (rs *RestfulServer) requireDeviceAuth(c *gin.Context) {
	if !rs.authorizeDevice(c, c.Param("device_id")) {
		return
	}
	c.Next()
}

func (rs *RestfulServer) limitDevice(c *gin.Context) {
	if !rs.CheckDeviceLimiter(c.Param("device_id")) {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	c.Next()
}

func (rs *RestfulServer) requireAdmin(c *gin.Context) {
	token := c.GetHeader("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(rs.AdminToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
		return
	}
	c.Next()
}
