// Package sender pushes the usage found in local session logs to a cost
// service. It keeps the device identity and a per-file cursor next to the
// deployment config, so every sync only sends what is new.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

const (
	DefaultDir     = "~/.costmeter"
	DefaultAPIBase = "http://127.0.0.1:19898"

	identityFile = "device.json"
	cursorFile   = "sent_cursor.json"

	BatchSize = meter.MaxIngestBatch

	usageEventType = "llm.usage"
	requestTimeout = 30 * time.Second
)

var ErrNotClaimable = errors.New("device not found or already claimed")

type Identity struct {
	DeviceID     string `json:"device_id"`
	DeviceSecret string `json:"device_secret,omitempty"`
}

// Cursor maps a session file path to the newest timestamp already sent
// from it.
type Cursor map[string]string

type Result struct {
	DeviceID string
	Sent     int
	Batches  int
}

type Sender struct {
	APIBase string
	Dir     string
	Paths   []string
	Catalog pricing.Catalog
	Client  *http.Client
}

func New(apiBase string, dir string, paths []string, catalog pricing.Catalog) *Sender {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if dir == "" {
		dir = DefaultDir
	}
	if catalog.Known == nil {
		catalog = pricing.DefaultCatalog()
	}
	return &Sender{
		APIBase: strings.TrimRight(apiBase, "/"),
		Dir:     common.ExpandHome(dir),
		Paths:   paths,
		Catalog: catalog,
		Client:  &http.Client{Timeout: requestTimeout},
	}
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameSender)
}

func (s *Sender) path(name string) string {
	return filepath.Join(s.Dir, name)
}

func (s *Sender) post(ctx context.Context, url string, secret string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIBase+url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

func statusError(op string, code int, body []byte) error {
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return fmt.Errorf("sender: %s: HTTP %d: %s", op, code, msg)
	}
	return fmt.Errorf("sender: %s: HTTP %d", op, code)
}

func (s *Sender) register(ctx context.Context) (*Identity, error) {
	body, code, err := s.post(ctx, "/api/register", "", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("sender: register: %w", err)
	}
	if code != http.StatusOK {
		return nil, statusError("register", code, body)
	}
	id := &Identity{
		DeviceID:     gjson.GetBytes(body, "device_id").String(),
		DeviceSecret: gjson.GetBytes(body, "device_secret").String(),
	}
	if id.DeviceID == "" || id.DeviceSecret == "" {
		return nil, fmt.Errorf("sender: register: incomplete response")
	}
	logger().Info("Registered device", zap.String("device_id", id.DeviceID))
	return id, nil
}

func (s *Sender) claim(ctx context.Context, deviceID string) (string, error) {
	body, code, err := s.post(ctx, "/api/claim", "", map[string]any{"device_id": deviceID})
	if err != nil {
		return "", fmt.Errorf("sender: claim: %w", err)
	}
	if code == http.StatusNotFound {
		return "", ErrNotClaimable
	}
	if code != http.StatusOK {
		return "", statusError("claim", code, body)
	}
	return gjson.GetBytes(body, "device_secret").String(), nil
}

func (s *Sender) loadIdentity() (*Identity, error) {
	data, err := os.ReadFile(s.path(identityFile))
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	if id.DeviceID == "" {
		return nil, fmt.Errorf("sender: %s has no device_id", identityFile)
	}
	return &id, nil
}

func (s *Sender) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(name), data, 0o600)
}

// Identity returns the stored device identity. A device without a secret
// claims one; when that is impossible, or nothing is stored, a new device is
// registered. The result is persisted.
func (s *Sender) Identity(ctx context.Context) (*Identity, error) {
	id, err := s.loadIdentity()
	if err == nil && id.DeviceSecret != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger().Warn("Ignoring unreadable device identity", zap.Error(err))
	}

	if err == nil {
		secret, claimErr := s.claim(ctx, id.DeviceID)
		switch {
		case claimErr == nil && secret != "":
			id.DeviceSecret = secret
			logger().Info("Claimed device secret", zap.String("device_id", id.DeviceID))
			return id, s.writeJSON(identityFile, id)
		case errors.Is(claimErr, ErrNotClaimable):
			logger().Warn("Device not claimable, registering a new one", zap.String("device_id", id.DeviceID))
		case claimErr != nil:
			return nil, claimErr
		}
	}

	id, err = s.register(ctx)
	if err != nil {
		return nil, err
	}
	return id, s.writeJSON(identityFile, id)
}

func (s *Sender) LoadCursor() (Cursor, error) {
	data, err := os.ReadFile(s.path(cursorFile))
	if errors.Is(err, os.ErrNotExist) {
		return Cursor{}, nil
	}
	if err != nil {
		return nil, err
	}
	cursor := Cursor{}
	if err := json.Unmarshal(data, &cursor); err != nil {
		logger().Warn("Ignoring corrupt cursor file", zap.Error(err))
		return Cursor{}, nil
	}
	return cursor, nil
}

func (s *Sender) SaveCursor(cursor Cursor) error {
	return s.writeJSON(cursorFile, cursor)
}

func (s *Sender) ClearCursor() error {
	err := os.Remove(s.path(cursorFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func toIngestEvent(m sessionlog.Message) models.IngestEvent {
	return models.IngestEvent{
		SessionID:        m.SessionID,
		EventType:        usageEventType,
		Model:            m.Model,
		Project:          m.Project,
		Provider:         m.Provider,
		InputTokens:      m.InputTokens,
		OutputTokens:     m.OutputTokens,
		CacheReadTokens:  m.CacheReadTokens,
		CacheWriteTokens: m.CacheWriteTokens,
		CostUSD:          m.CostTotal,
		Timestamp:        m.Timestamp,
		Tools:            strings.Join(m.Tools, ","),
	}
}

// Pending collects the events newer than the cursor and returns the cursor
// that is valid once they are all sent.
func (s *Sender) Pending(cursor Cursor) ([]models.IngestEvent, Cursor, error) {
	files, err := sessionlog.FindSessionFiles(s.Paths)
	if err != nil {
		return nil, nil, err
	}

	next := Cursor{}
	for k, v := range cursor {
		next[k] = v
	}

	events := []models.IngestEvent{}
	for _, file := range files {
		msgs, err := sessionlog.ParseFile(file, s.Catalog)
		if err != nil {
			logger().Warn("Skipping unreadable session file", zap.String("path", file), zap.Error(err))
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		last := cursor[file]
		latest := ""
		for _, m := range msgs {
			if m.Timestamp > last {
				events = append(events, toIngestEvent(m))
			}
			latest = max(latest, m.Timestamp)
		}
		next[file] = latest
	}
	return events, next, nil
}

func (s *Sender) sendBatch(ctx context.Context, id *Identity, batch []models.IngestEvent) error {
	body, code, err := s.post(ctx, "/api/ingest", id.DeviceSecret, map[string]any{
		"device_id": id.DeviceID,
		"events":    batch,
	})
	if err != nil {
		return fmt.Errorf("sender: ingest: %w", err)
	}
	if code != http.StatusOK {
		return statusError("ingest", code, body)
	}
	return nil
}

// Send posts the events in batches and stops at the first failure.
func (s *Sender) Send(ctx context.Context, id *Identity, events []models.IngestEvent) (int, error) {
	batches := 0
	for start := 0; start < len(events); start += BatchSize {
		end := min(start+BatchSize, len(events))
		if err := s.sendBatch(ctx, id, events[start:end]); err != nil {
			logger().Error("Batch failed",
				zap.Int("batch", batches+1),
				zap.Int("sent", start),
				zap.Int("total", len(events)),
				zap.Error(err),
			)
			return batches, err
		}
		batches++
		logger().Info("Batch sent", zap.Int("batch", batches), zap.Int("sent", end), zap.Int("total", len(events)))
	}
	return batches, nil
}

// Sync sends every new event and advances the cursor only when all batches
// were accepted.
func (s *Sender) Sync(ctx context.Context) (*Result, error) {
	id, err := s.Identity(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := s.LoadCursor()
	if err != nil {
		return nil, err
	}
	events, next, err := s.Pending(cursor)
	if err != nil {
		return nil, err
	}

	result := &Result{DeviceID: id.DeviceID}
	if len(events) == 0 {
		return result, nil
	}

	batches, err := s.Send(ctx, id, events)
	result.Batches = batches
	if err != nil {
		return result, err
	}
	result.Sent = len(events)

	if err := s.SaveCursor(next); err != nil {
		return result, err
	}
	logger().Info("Synced events", zap.String("device_id", id.DeviceID), zap.Int("count", result.Sent))
	return result, nil
}

// Resync drops the events the service holds for this device, forgets the
// cursor and sends everything again. It returns the number of remote events
// deleted.
func (s *Sender) Resync(ctx context.Context) (int64, *Result, error) {
	id, err := s.Identity(ctx)
	if err != nil {
		return 0, nil, err
	}

	body, code, err := s.post(ctx, "/api/devices/"+id.DeviceID+"/resync", id.DeviceSecret, map[string]any{})
	if err != nil {
		return 0, nil, fmt.Errorf("sender: resync: %w", err)
	}
	if code != http.StatusOK {
		return 0, nil, statusError("resync", code, body)
	}
	deleted := gjson.GetBytes(body, "deleted").Int()

	if err := s.ClearCursor(); err != nil {
		return deleted, nil, err
	}
	result, err := s.Sync(ctx)
	return deleted, result, err
}
