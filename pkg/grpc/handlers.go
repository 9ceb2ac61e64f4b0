package grpc

import (
	"context"

	z "github.com/Oudwins/zog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/models"
)

var deviceIDSchema = z.String().Required().Match(meter.DeviceIDPattern)

type ingestRequest struct {
	DeviceID string               `json:"device_id"`
	Events   []models.IngestEvent `json:"events"`
}

var ingestRequestSchema = z.Struct(z.Shape{
	"DeviceID": deviceIDSchema,
})

func (s *UsageServer) Ingest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ingestRequest
	if err := decode(in, &req); err != nil {
		return validationFailure(err.Error())
	}
	if issues := ingestRequestSchema.Validate(&req); issues != nil {
		return issuesFailure(issues)
	}
	if err := s.authorize(ctx, req.DeviceID); err != nil {
		return nil, err
	}

	result, err := s.Meter.Event.Ingest(req.DeviceID, req.Events)
	if err != nil {
		return failure(MethodIngest, err)
	}

	return reply(map[string]any{
		"ingested":   result.Ingested,
		"new_alerts": len(result.NewAlerts),
	})
}

type alertsRequest struct {
	DeviceID     string `json:"device_id"`
	Acknowledged *bool  `json:"acknowledged"`
}

var alertsRequestSchema = z.Struct(z.Shape{
	"DeviceID": deviceIDSchema,
})

func (s *UsageServer) GetAlerts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req alertsRequest
	if err := decode(in, &req); err != nil {
		return validationFailure(err.Error())
	}
	if issues := alertsRequestSchema.Validate(&req); issues != nil {
		return issuesFailure(issues)
	}
	if err := s.authorize(ctx, req.DeviceID); err != nil {
		return nil, err
	}

	tier, err := s.Meter.Device.GetTier(req.DeviceID)
	if err != nil {
		return failure(MethodGetAlerts, err)
	}
	if tier == models.TierFree {
		return reply(map[string]any{"alerts": []models.Alert{}, "count": 0, "tier_limited": true})
	}

	alerts, err := s.Meter.Alert.GetDeviceAlerts(req.DeviceID, req.Acknowledged)
	if err != nil {
		return failure(MethodGetAlerts, err)
	}
	return reply(map[string]any{"alerts": alerts, "count": len(alerts)})
}

type acknowledgeRequest struct {
	DeviceID string `json:"device_id"`
	AlertID  int64  `json:"alert_id"`
}

var acknowledgeRequestSchema = z.Struct(z.Shape{
	"DeviceID": deviceIDSchema,
	"AlertID":  z.Int64().Required().GT(0),
})

func (s *UsageServer) AcknowledgeAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req acknowledgeRequest
	if err := decode(in, &req); err != nil {
		return validationFailure(err.Error())
	}
	if issues := acknowledgeRequestSchema.Validate(&req); issues != nil {
		return issuesFailure(issues)
	}
	if err := s.authorize(ctx, req.DeviceID); err != nil {
		return nil, err
	}

	ok, err := s.Meter.Alert.AcknowledgeAlert(req.DeviceID, uint(req.AlertID))
	if err != nil {
		return failure(MethodAcknowledgeAlert, err)
	}
	if !ok {
		return nil, status.Error(codes.NotFound, "alert not found or not owned by device")
	}
	return reply(map[string]any{})
}

type deviceRequest struct {
	DeviceID string `json:"device_id"`
}

var deviceRequestSchema = z.Struct(z.Shape{
	"DeviceID": deviceIDSchema,
})

func (s *UsageServer) RecalculateCosts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req deviceRequest
	if err := decode(in, &req); err != nil {
		return validationFailure(err.Error())
	}
	if issues := deviceRequestSchema.Validate(&req); issues != nil {
		return issuesFailure(issues)
	}
	if err := s.authorize(ctx, req.DeviceID); err != nil {
		return nil, err
	}

	updated, err := s.Meter.Event.RecalculateDeviceCosts(req.DeviceID)
	if err != nil {
		return failure(MethodRecalculateCosts, err)
	}
	return reply(map[string]any{"events_updated": updated})
}
