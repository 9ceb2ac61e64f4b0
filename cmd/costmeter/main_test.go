package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/config"
	"liyu1981.xyz/llm-cost-service/pkg/db"
	costHttp "liyu1981.xyz/llm-cost-service/pkg/http"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/report"
	_ "liyu1981.xyz/llm-cost-service/pkg/testing"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// four quiet haiku days, then a $15 opus day
const sessionLog = `{"type":"assistant","timestamp":"2026-03-06T09:00:00Z","message":{"model":"claude-haiku-4-5-20251001","usage":{"input_tokens":1000000}}}
{"type":"assistant","timestamp":"2026-03-07T09:00:00Z","message":{"model":"claude-haiku-4-5-20251001","usage":{"input_tokens":1000000}}}
{"type":"assistant","timestamp":"2026-03-08T09:00:00Z","message":{"model":"claude-haiku-4-5-20251001","usage":{"input_tokens":1000000}}}
{"type":"assistant","timestamp":"2026-03-09T09:00:00Z","message":{"model":"claude-haiku-4-5-20251001","usage":{"input_tokens":1000000}}}
{"type":"assistant","timestamp":"2026-03-10T09:00:00Z","message":{"model":"claude-opus-4-6","usage":{"input_tokens":1000000}}}
`

func setupData(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, ".claude", "projects", "-Users-dev-code-threadjack", "sess-cli-0001.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sessionLog), 0o644))

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("data_paths: ["+root+"]\nanomaly_threshold: 0.25\n"), 0o644))
	return configPath
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, func() time.Time { return testNow })
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	common.SetTestLoggerNop()

	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "usage: costmeter")
	assert.Contains(t, stderr, "cost-report")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, _ = runCLI(t, "--no-such-flag", "status")
	assert.Equal(t, exitUsage, code)
}

func TestStatus(t *testing.T) {
	common.SetTestLoggerNop()
	configPath := setupData(t)

	code, stdout, _ := runCLI(t, "--config", configPath, "status")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Cost status: 2026-03-10")
	assert.Contains(t, stdout, "Session files scanned")
	assert.Contains(t, stdout, "$15.00")
	assert.Contains(t, stdout, "1.0M")

	for _, args := range [][]string{
		{"--json", "--config", configPath, "status"},
		{"--config", configPath, "status", "--json"},
	} {
		code, stdout, _ = runCLI(t, args...)
		require.Equal(t, exitOK, code)

		var summary report.Summary
		require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
		assert.Equal(t, "2026-03-10", summary.Date)
		assert.InDelta(t, 15.0, summary.TotalCostUSD, 1e-9)
		assert.Equal(t, 1, summary.SessionCount)
		assert.Equal(t, 1, summary.MessageCount)
	}
}

func TestCostReport(t *testing.T) {
	common.SetTestLoggerNop()
	configPath := setupData(t)

	code, stdout, _ := runCLI(t, "--config", configPath, "cost-report", "--days", "5")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Cost report: last 5 days")
	assert.Contains(t, stdout, "By model")
	assert.Contains(t, stdout, "claude-opus-4-6")
	assert.Contains(t, stdout, "threadjack")
	assert.Contains(t, stdout, "sess-cli-000...")

	code, stdout, _ = runCLI(t, "--json", "--config", configPath, "cost-report", "--days", "5")
	require.Equal(t, exitOK, code)
	var costReport report.CostReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &costReport))
	require.Len(t, costReport.Models, 2)
	assert.Equal(t, "claude-opus-4-6", costReport.Models[0].Model)
	require.Len(t, costReport.Projects, 1)
	assert.Equal(t, 5, costReport.Projects[0].MessageCount)

	code, _, stderr := runCLI(t, "--config", configPath, "cost-report", "--days", "0")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "--days must be at least 1")
}

func TestAnomalies(t *testing.T) {
	common.SetTestLoggerNop()
	configPath := setupData(t)

	code, stdout, _ := runCLI(t, "--json", "--config", configPath, "anomalies")
	require.Equal(t, exitOK, code)
	var anomalies []report.Anomaly
	require.NoError(t, json.Unmarshal([]byte(stdout), &anomalies))
	require.Len(t, anomalies, 1)
	assert.Equal(t, "2026-03-10", anomalies[0].Date)
	assert.Equal(t, models.SeverityCritical, anomalies[0].Severity)

	code, stdout, _ = runCLI(t, "--config", configPath, "anomalies")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "!!")
	assert.Contains(t, stdout, "2026-03-10")

	code, stdout, _ = runCLI(t, "--json", "--config", configPath, "anomalies", "--projects")
	require.Equal(t, exitOK, code)
	require.NoError(t, json.Unmarshal([]byte(stdout), &anomalies))
	require.Len(t, anomalies, 1)
	assert.Equal(t, "threadjack", anomalies[0].Project)
}

func TestAnomalies_None(t *testing.T) {
	common.SetTestLoggerNop()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("data_paths: ["+t.TempDir()+"]\n"), 0o644))

	code, stdout, _ := runCLI(t, "--config", configPath, "anomalies")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "No anomalies detected.\n", stdout)

	code, stdout, _ = runCLI(t, "--json", "--config", configPath, "anomalies")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "[]", strings.TrimSpace(stdout))
}

func TestBadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("cache_ttl_seconds: -1\n"), 0o644))

	code, _, stderr := runCLI(t, "--config", configPath, "status")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "cache_ttl_seconds")
}

func TestSetTier(t *testing.T) {
	common.SetTestLoggerNop()
	t.Setenv(common.EnvKeyDBType, db.TypeMemory)
	configPath := setupData(t)

	m := meter.New(*db.GetInstance(db.UseMemorySqliteDialector()), nil, config.AlertDefaults{})
	deviceID, _, err := m.Device.RegisterDevice()
	require.NoError(t, err)

	code, stdout, _ := runCLI(t, "--config", configPath, "set-tier", deviceID, "pro")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "pro tier")

	tier, err := m.Device.GetTier(deviceID)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, tier)

	code, _, stderr := runCLI(t, "--config", configPath, "set-tier", deviceID, "gold")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "tier must be free or pro")

	code, _, _ = runCLI(t, "--config", configPath, "set-tier", deviceID)
	assert.Equal(t, exitUsage, code)

	code, _, stderr = runCLI(t, "--config", configPath, "set-tier", "not-a-device", "pro")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "invalid device id")
}

func TestSync(t *testing.T) {
	common.SetTestLoggerNop()
	t.Setenv("HOME", t.TempDir())
	configPath := setupData(t)

	gin.SetMode(gin.TestMode)
	rs := &costHttp.RestfulServer{
		Server: gin.New(),
		Meter:  meter.New(*db.GetInstance(db.UseMemorySqliteDialector()), nil, config.AlertDefaults{}),
	}
	rs.Setup()
	ts := httptest.NewServer(rs.Server)
	defer ts.Close()
	t.Setenv(common.EnvKeyAPIBase, ts.URL)

	code, stdout, stderr := runCLI(t, "--config", configPath, "sync")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Synced 5 events in 1 batches.")

	code, stdout, _ = runCLI(t, "--config", configPath, "sync")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "No new events to sync.")

	code, stdout, _ = runCLI(t, "--json", "--config", configPath, "sync", "--resync")
	require.Equal(t, exitOK, code)
	var out syncOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.NotNil(t, out.Deleted)
	assert.Equal(t, int64(5), *out.Deleted)
	assert.Equal(t, 5, out.Sent)
	assert.True(t, meter.ValidDeviceID(out.DeviceID))
}

func TestSync_ServiceDown(t *testing.T) {
	common.SetTestLoggerNop()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(common.EnvKeyAPIBase, "http://127.0.0.1:1")
	configPath := setupData(t)

	code, _, stderr := runCLI(t, "--config", configPath, "sync")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "sender: register")
}
