package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
)

const bearerPrefix = "Bearer "

type UsageServer struct {
	Meter            *meter.Meter
	RateLimiterStore *meter.RateLimiterStore
}

var _ UsageServiceServer = (*UsageServer)(nil)

func (s *UsageServer) GetLimiter(deviceID string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	} else {
		return s.RateLimiterStore.GetLimiter(deviceID)
	}
}

func (s *UsageServer) CheckDeviceLimiter(deviceID string) bool {
	limiter := s.GetLimiter(deviceID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameGrpcServer)
}

// decode maps the Struct onto a typed request through its JSON form.
func decode(in *structpb.Struct, dst any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	fields["success"] = true
	if _, ok := fields["message"]; !ok {
		fields["message"] = "OK"
	}
	return toStruct(fields)
}

// toStruct goes through JSON so that struct tags and time values come out the
// same as on the REST API.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func validationFailure(msg string) (*structpb.Struct, error) {
	return toStruct(map[string]any{
		"success": false,
		"message": "validation error: " + msg,
	})
}

func issuesFailure(issues z.ZogIssueMap) (*structpb.Struct, error) {
	return validationFailure(common.IssueText(issues))
}

// failure turns a meter error into either a validation reply or a status
// error.
func failure(method string, err error) (*structpb.Struct, error) {
	var tierErr *meter.TierLimitError
	switch {
	case errors.As(err, &tierErr):
		return nil, status.Error(codes.PermissionDenied, tierErr.Error())
	case errors.Is(err, meter.ErrInvalidInput):
		return validationFailure(strings.TrimPrefix(err.Error(), meter.ErrInvalidInput.Error()+": "))
	case errors.Is(err, meter.ErrNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, meter.ErrUnauthorized):
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	logger().Error("Request failed", zap.String("method", method), zap.Error(err))
	return nil, status.Error(codes.Internal, "internal error")
}

// authorize checks the "authorization: Bearer <secret>" metadata against the
// device.
func (s *UsageServer) authorize(ctx context.Context, deviceID string) error {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 || !strings.HasPrefix(values[0], bearerPrefix) {
		return status.Error(codes.Unauthenticated, "authorization required")
	}

	ok, err := s.Meter.Device.VerifyDeviceSecret(deviceID, values[0][len(bearerPrefix):])
	if err != nil {
		logger().Error("Secret verification failed", zap.String("device_id", deviceID), zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	if !ok {
		return status.Error(codes.PermissionDenied, fmt.Sprintf("invalid device secret for %s", deviceID))
	}
	return nil
}
