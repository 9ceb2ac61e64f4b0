package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"liyu1981.xyz/llm-cost-service/pkg/report"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

func (rs *RestfulServer) localMessages(c *gin.Context) ([]sessionlog.Message, bool) {
	msgs, err := rs.Local.Messages(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return msgs, true
}

// rangeDays reads "7d" or "7"; anything else is the default.
func rangeDays(v string) int {
	days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
	if err != nil || days < 1 {
		return report.DefaultDays
	}
	return days
}

func (rs *RestfulServer) GetLocalSummary(c *gin.Context) {
	msgs, ok := rs.localMessages(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.GetSummary(msgs, rs.now()))
}

func (rs *RestfulServer) GetLocalCosts(c *gin.Context) {
	msgs, ok := rs.localMessages(c)
	if !ok {
		return
	}
	days := rangeDays(c.DefaultQuery("range", "7d"))
	c.JSON(http.StatusOK, report.CostTimeseries(msgs, days, rs.now()))
}

func (rs *RestfulServer) GetLocalModels(c *gin.Context) {
	msgs, ok := rs.localMessages(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.GetModelBreakdown(msgs))
}

func (rs *RestfulServer) GetLocalProjects(c *gin.Context) {
	msgs, ok := rs.localMessages(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.GetProjectBreakdown(msgs))
}

func (rs *RestfulServer) GetLocalSessions(c *gin.Context) {
	msgs, ok := rs.localMessages(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.GetTopSessions(msgs, queryInt(c, "n", report.DefaultTopSessions)))
}

func (rs *RestfulServer) GetLocalAnomalies(c *gin.Context) {
	msgs, ok := rs.localMessages(c)
	if !ok {
		return
	}
	threshold := rs.AnomalyThreshold
	if threshold <= 0 {
		threshold = report.DefaultAnomalyThreshold
	}
	c.JSON(http.StatusOK, report.DetectAnomalies(msgs, threshold, report.DefaultAnomalyWindow))
}
