package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/db"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
	"liyu1981.xyz/llm-cost-service/pkg/report"
	"liyu1981.xyz/llm-cost-service/pkg/sender"
	"liyu1981.xyz/llm-cost-service/pkg/server"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) loadMessages(ctx context.Context) ([]sessionlog.Message, int, error) {
	return sessionlog.Load(ctx, a.cfg.DataPaths, pricing.DefaultCatalog())
}

func runStatus(ctx context.Context, a *app, args []string) error {
	if err := a.subFlags("status").Parse(args); err != nil {
		return err
	}

	msgs, files, err := a.loadMessages(ctx)
	if err != nil {
		return err
	}
	summary := report.GetSummary(msgs, a.now().UTC())

	if a.jsonOut {
		return a.writeJSON(summary)
	}
	renderStatus(a.out, summary, files, len(msgs))
	return nil
}

func runCostReport(ctx context.Context, a *app, args []string) error {
	set := a.subFlags("cost-report")
	days := set.Int("days", report.DefaultDays, "number of days")
	if err := set.Parse(args); err != nil {
		return err
	}
	if *days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	msgs, _, err := a.loadMessages(ctx)
	if err != nil {
		return err
	}
	costReport := report.BuildCostReport(msgs, *days, a.now().UTC())

	if a.jsonOut {
		return a.writeJSON(costReport)
	}
	renderCostReport(a.out, costReport, *days)
	return nil
}

func runAnomalies(ctx context.Context, a *app, args []string) error {
	set := a.subFlags("anomalies")
	byProject := set.Bool("projects", false, "check every project on its own")
	if err := set.Parse(args); err != nil {
		return err
	}

	msgs, _, err := a.loadMessages(ctx)
	if err != nil {
		return err
	}

	threshold := a.cfg.AnomalyThreshold
	var anomalies []report.Anomaly
	if *byProject {
		anomalies = report.DetectProjectAnomalies(msgs, threshold)
	} else {
		anomalies = report.DetectAnomalies(msgs, threshold, report.DefaultAnomalyWindow)
	}

	if a.jsonOut {
		if anomalies == nil {
			anomalies = []report.Anomaly{}
		}
		return a.writeJSON(anomalies)
	}
	renderAnomalies(a.out, anomalies, threshold)
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	set := a.subFlags("serve")
	port := set.Int("port", a.cfg.ServerPort, "HTTP port")
	if err := set.Parse(args); err != nil {
		return err
	}
	a.cfg.ServerPort = *port

	var defaultRate float64
	if v := os.Getenv(common.EnvKeyDefaultRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyDefaultRate, err)
		}
		defaultRate = rate
	}
	defaultBurst := 0
	if v := os.Getenv(common.EnvKeyDefaultBurst); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", common.EnvKeyDefaultBurst, err)
		}
		defaultBurst = burst
	}

	s, err := server.New(server.Options{
		Config:       a.cfg,
		DB:           db.GetInstanceByType(os.Getenv(common.EnvKeyDBType)),
		GRPCHostPort: os.Getenv(common.EnvKeyGrpcHostPort),
		DefaultRate:  defaultRate,
		DefaultBurst: defaultBurst,
		AdminToken:   os.Getenv(common.EnvKeyAdminToken),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Serving on http://%s\n", a.cfg.HostPort())
	return s.Run(ctx)
}

type syncOutput struct {
	DeviceID string `json:"device_id"`
	Sent     int    `json:"sent"`
	Batches  int    `json:"batches"`
	Deleted  *int64 `json:"deleted,omitempty"`
}

func runSync(ctx context.Context, a *app, args []string) error {
	set := a.subFlags("sync")
	resync := set.Bool("resync", false, "delete the events the service holds for this device and send everything again")
	if err := set.Parse(args); err != nil {
		return err
	}

	s := sender.New(os.Getenv(common.EnvKeyAPIBase), sender.DefaultDir, a.cfg.DataPaths, pricing.DefaultCatalog())

	var out syncOutput
	if *resync {
		deleted, result, err := s.Resync(ctx)
		out.Deleted = &deleted
		if result != nil {
			out.DeviceID, out.Sent, out.Batches = result.DeviceID, result.Sent, result.Batches
		}
		if err != nil {
			return err
		}
	} else {
		result, err := s.Sync(ctx)
		if result != nil {
			out.DeviceID, out.Sent, out.Batches = result.DeviceID, result.Sent, result.Batches
		}
		if err != nil {
			return err
		}
	}

	if a.jsonOut {
		return a.writeJSON(out)
	}
	renderSync(a.out, out)
	return nil
}

func runSetTier(ctx context.Context, a *app, args []string) error {
	set := a.subFlags("set-tier")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() != 2 {
		fmt.Fprintln(a.errOut, "usage: costmeter set-tier <device_id> <free|pro>")
		return errUsage
	}
	deviceID, tier := set.Arg(0), models.Tier(set.Arg(1))
	if !meter.ValidDeviceID(deviceID) {
		return fmt.Errorf("invalid device id %q", deviceID)
	}

	dbInstance := db.GetInstanceByType(os.Getenv(common.EnvKeyDBType))
	m := meter.New(*dbInstance, nil, a.cfg.Alerts)
	if err := m.Device.SetTier(deviceID, tier); err != nil {
		return err
	}

	if a.jsonOut {
		return a.writeJSON(map[string]string{"device_id": deviceID, "tier": string(tier)})
	}
	fmt.Fprintf(a.out, "Device %s is now on the %s tier.\n", deviceID, tier)
	return nil
}
