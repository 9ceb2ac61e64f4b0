package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	costGrpc "liyu1981.xyz/llm-cost-service/pkg/grpc"
)

var maxDevices int = 500
var eventsPerBatch int = 50
var httpHostPort string = "127.0.0.1:19898"
var grpcHostPort string = "127.0.0.1:19899"

var grpcClient *costGrpc.UsageServiceClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var benchModels = []string{
	"claude-opus-4-6",
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
}

type device struct {
	id     string
	secret string
}

func main() {
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = costGrpc.NewUsageServiceClient(conn)

	fmt.Printf("gRPC client created\n")

	var startTime time.Time
	var usedTime time.Duration

	devices := make([]device, maxDevices)
	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			devices[i] = registerDevice()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"registered %v devices: used time=%v seconds, throughput=%v action/second\n",
		maxDevices, usedTime.Seconds(), float64(maxDevices)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doAction(devices[i])
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v devices: used time=%v seconds, throughput=%v action/second, events=%v\n",
		maxDevices, usedTime.Seconds(), float64(maxDevices*3)/usedTime.Seconds(), maxDevices*eventsPerBatch,
	)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndInt(n int) int {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Intn(n)
}

func authContext(d device) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+d.secret)
}

func postJSON(path string, secret string, payload any) ([]byte, int, error) {
	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s%s", httpHostPort, path), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	return buf.Bytes(), resp.StatusCode, err
}

func registerDevice() device {
	body, code, err := postJSON("/api/register", "", map[string]any{})
	if err != nil || code != http.StatusOK {
		panic(fmt.Sprintf("register failed: err: %v, status: %v", err, code))
	}
	return device{
		id:     gjson.GetBytes(body, "device_id").String(),
		secret: gjson.GetBytes(body, "device_secret").String(),
	}
}

func genEvents() []any {
	sessionID := uuid.NewString()
	events := make([]any, eventsPerBatch)
	for i := range events {
		events[i] = map[string]any{
			"session_id":    sessionID,
			"model":         benchModels[rndInt(len(benchModels))],
			"project":       "bench",
			"input_tokens":  1000 + rndInt(50_000),
			"output_tokens": 100 + rndInt(5_000),
			"tools":         "Bash,Read",
		}
	}
	return events
}

func doAction(d device) {
	actions := []func(){
		genIngestAction(d),
		genGetAlertsAction(d),
		genRecalculateAction(d),
	}
	actionNames := []string{
		"Ingest",
		"GetAlerts",
		"RecalculateCosts",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	rndMu.Unlock()
	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for device %v", actionNames[index], d.id)
		time.Sleep(time.Duration(100+rndInt(1000)) * time.Millisecond)
	}
}

func genIngestAction(d device) func() {
	return func() {
		payload := map[string]any{"device_id": d.id, "events": genEvents()}

		if flipCoin() {
			_, code, err := postJSON("/api/ingest", d.secret, payload)
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
			} else if code != http.StatusOK {
				fmt.Printf("\nresponse status code != 200: %v\n", code)
			}
			return
		}

		req, err := structpb.NewStruct(payload)
		if err != nil {
			panic(err)
		}
		resp, err := grpcClient.Ingest(authContext(d), req)
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
		} else if !resp.Fields["success"].GetBoolValue() {
			fmt.Printf("\nresponse success = false: %v\n", resp)
		}
	}
}

func genGetAlertsAction(d device) func() {
	return func() {
		if flipCoin() {
			req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/api/devices/%s/alerts", httpHostPort, d.id), nil)
			req.Header.Set("Authorization", "Bearer "+d.secret)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				fmt.Printf("\nresponse status code != 200: %v\n", resp.StatusCode)
			}
			return
		}

		req, _ := structpb.NewStruct(map[string]any{"device_id": d.id})
		resp, err := grpcClient.GetAlerts(authContext(d), req)
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
		} else if !resp.Fields["success"].GetBoolValue() {
			fmt.Printf("\nresponse success = false: %v\n", resp)
		}
	}
}

func genRecalculateAction(d device) func() {
	return func() {
		if flipCoin() {
			_, code, err := postJSON(fmt.Sprintf("/api/devices/%s/pricing/recalculate", d.id), d.secret, map[string]any{})
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
			} else if code != http.StatusOK {
				fmt.Printf("\nresponse status code != 200: %v\n", code)
			}
			return
		}

		req, _ := structpb.NewStruct(map[string]any{"device_id": d.id})
		resp, err := grpcClient.RecalculateCosts(authContext(d), req)
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
		} else if !resp.Fields["success"].GetBoolValue() {
			fmt.Printf("\nresponse success = false: %v\n", resp)
		}
	}
}
