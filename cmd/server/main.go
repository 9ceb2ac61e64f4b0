package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/config"
	"liyu1981.xyz/llm-cost-service/pkg/db"
	"liyu1981.xyz/llm-cost-service/pkg/server"
)

func main() {
	var err error

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("Error loading .env file: ", err)
	}

	cfg, err := config.Load(os.Getenv(common.EnvKeyConfigPath))
	if err != nil {
		log.Fatal(err)
	}

	dbInstance := db.GetInstanceByType(os.Getenv(common.EnvKeyDBType))

	grpcHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyGrpcHostPort))
	httpHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyHttpHostPort))

	var defaultRate float64
	var defaultBurst int64

	if v := os.Getenv(common.EnvKeyDefaultRate); v != "" {
		if defaultRate, err = strconv.ParseFloat(v, 64); err != nil {
			log.Fatal("Invalid " + common.EnvKeyDefaultRate + ", should be a float64 value")
		}
	}

	if v := os.Getenv(common.EnvKeyDefaultBurst); v != "" {
		if defaultBurst, err = strconv.ParseInt(v, 10, 64); err != nil {
			log.Fatal("Invalid " + common.EnvKeyDefaultBurst + ", should be an int value")
		}
	}
	if defaultRate > 0 && defaultBurst <= 0 {
		defaultBurst = max(1, int64(defaultRate))
	}

	logger := common.GetLogger()

	s, err := server.New(server.Options{
		Config:       cfg,
		DB:           dbInstance,
		HTTPHostPort: httpHostPort,
		GRPCHostPort: grpcHostPort,
		DefaultRate:  defaultRate,
		DefaultBurst: int(defaultBurst),
		AdminToken:   os.Getenv(common.EnvKeyAdminToken),
	})
	if err != nil {
		log.Fatal(err)
	}

	logger.Info("servers created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", defaultRate, defaultBurst)),
		zap.Strings("data_paths", cfg.DataPaths),
		zap.Bool("admin_enabled", os.Getenv(common.EnvKeyAdminToken) != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.Run(ctx); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited")
}
