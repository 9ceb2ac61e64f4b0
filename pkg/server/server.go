// Package server runs the HTTP and gRPC front ends of the cost service until
// the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/config"
	"liyu1981.xyz/llm-cost-service/pkg/db"
	costGrpc "liyu1981.xyz/llm-cost-service/pkg/grpc"
	costHttp "liyu1981.xyz/llm-cost-service/pkg/http"
	"liyu1981.xyz/llm-cost-service/pkg/meter"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	Config *config.Config
	DB     *db.DB

	// HTTPHostPort defaults to Config.HostPort(). An empty GRPCHostPort
	// disables gRPC.
	HTTPHostPort string
	GRPCHostPort string

	DefaultRate  float64
	DefaultBurst int

	AdminToken string
}

// Server bundles the long-lived pieces so callers and tests can reach them.
type Server struct {
	Meter   *meter.Meter
	Restful *costHttp.RestfulServer
	Grpc    *grpc.Server
	Local   *sessionlog.Cache
	Watcher *sessionlog.Watcher

	opts Options
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.DB == nil {
		return nil, errors.New("server: database required")
	}
	if opts.HTTPHostPort == "" {
		opts.HTTPHostPort = opts.Config.HostPort()
	}
	cfg := opts.Config

	catalog := pricing.DefaultCatalog()
	m := meter.New(*opts.DB, pricing.NewResolver(catalog, cfg.Pricing.ProviderDefaults), cfg.Alerts)

	var limiterStore *meter.RateLimiterStore
	if opts.DefaultRate > 0 {
		limiterStore = meter.NewRateLimiterStore(rate.Limit(opts.DefaultRate), opts.DefaultBurst)
	}

	s := &Server{Meter: m, opts: opts}
	if len(cfg.DataPaths) > 0 {
		s.Local = sessionlog.NewCache(cfg.DataPaths, cfg.CacheTTL(), catalog)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	s.Restful = &costHttp.RestfulServer{
		Server:           engine,
		Meter:            m,
		RateLimiterStore: limiterStore,
		Local:            s.Local,
		AnomalyThreshold: cfg.AnomalyThreshold,
		AdminToken:       opts.AdminToken,
	}
	s.Restful.Setup()

	if opts.GRPCHostPort != "" {
		usageServer := costGrpc.UsageServer{Meter: m, RateLimiterStore: limiterStore}
		s.Grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(
			costGrpc.MetricsInterceptor(),
			usageServer.CreateRateLimitInterceptor(costGrpc.AllMethods()),
		))
		costGrpc.RegisterUsageServiceServer(s.Grpc, &usageServer)
	}
	return s, nil
}

// Run serves until ctx is done or one listener fails, then shuts the others
// down.
func (s *Server) Run(ctx context.Context) error {
	logger := common.GetLogger()
	g, ctx := errgroup.WithContext(ctx)

	if s.Local != nil && s.opts.Config.WatchDataPaths {
		w, err := sessionlog.NewWatcher(s.Local)
		if err != nil {
			return fmt.Errorf("server: watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			_ = w.Close()
			return fmt.Errorf("server: watcher: %w", err)
		}
		s.Watcher = w
		defer w.Close()
	}

	httpListener, err := net.Listen("tcp", s.opts.HTTPHostPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	var grpcListener net.Listener
	if s.Grpc != nil {
		if grpcListener, err = net.Listen("tcp", s.opts.GRPCHostPort); err != nil {
			_ = httpListener.Close()
			return fmt.Errorf("failed to listen: %w", err)
		}
	}

	httpServer := &http.Server{Handler: s.Restful.Server}
	g.Go(func() error {
		logger.Info("Starting HTTP server on: " + httpListener.Addr().String())
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed to serve: %w", err)
		}
		return nil
	})

	if s.Grpc != nil {
		g.Go(func() error {
			logger.Info("Starting gRPC server on: " + grpcListener.Addr().String())
			if err := s.Grpc.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server failed to serve: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.Grpc != nil {
			s.Grpc.GracefulStop()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
