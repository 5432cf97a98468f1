// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package main is the entry point for the QR code tool HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/config"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logger"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logo"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/pipeline"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/qr"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/session"
	transport "github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/transport/http"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()
	log := logger.Logger

	log.Info("Starting QR code tool",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	config.LoadDotEnv(log)
	cfg := config.LoadConfig()
	log.Debug("Configuration loaded",
		zap.String("port", cfg.Port),
		zap.Duration("read_timeout", cfg.ReadTimeout),
		zap.Duration("write_timeout", cfg.WriteTimeout),
		zap.Int64("max_body_size", cfg.MaxBodySize),
		zap.Int64("max_logo_bytes", cfg.MaxLogoBytes),
		zap.Duration("render_debounce", cfg.RenderDebounce),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	defaults, err := sessionDefaults(cfg)
	if err != nil {
		log.Fatal("Invalid default render settings", zap.Error(err))
	}

	enc := qr.NewEncoder(log, cfg.MinSize, cfg.MaxSize)
	store := logo.NewMemoryStore()
	sessions := session.NewRegistry(enc, store, log, session.Options{
		Defaults:      defaults,
		Scheduler:     pipeline.DeferredScheduler{Delay: cfg.RenderDebounce},
		LogoSoftLimit: cfg.LogoSoftLimit,
		TTL:           cfg.SessionTTL,
		SweepInterval: cfg.SessionSweepInterval,
	})

	h := transport.NewHandler(enc, sessions, store, log, transport.Limits{
		MaxBodySize:  cfg.MaxBodySize,
		MaxLogoBytes: cfg.MaxLogoBytes,
		MinSize:      cfg.MinSize,
		MaxSize:      cfg.MaxSize,
	}, defaults)

	// Configure HTTP server with timeouts and security settings
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           transport.NewRouter(h, log),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sessions.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutdown signal received, draining connections", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("Shutdown timeout exceeded, closing connections")
				_ = srv.Close()
			}
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	log.Info("Server exited gracefully")
}

// sessionDefaults builds the initial request of every new session.
func sessionDefaults(cfg *config.Config) (pipeline.Request, error) {
	level, err := qr.ParseLevel(cfg.DefaultErrorCorrection)
	if err != nil {
		return pipeline.Request{}, err
	}
	if !pipeline.ValidSize(cfg.DefaultSize) {
		return pipeline.Request{}, fmt.Errorf("%w: DEFAULT_SIZE=%d", pipeline.ErrInvalidSize, cfg.DefaultSize)
	}
	return pipeline.Request{
		SizePx:    cfg.DefaultSize,
		Level:     level,
		Theme:     qr.ThemeLight,
		LogoScale: cfg.LogoScale,
	}, nil
}
