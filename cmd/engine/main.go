/**
 * Copyright 2024-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bet-engine-go/internal/assistant"
	"bet-engine-go/internal/betting"
	"bet-engine-go/internal/common"
	"bet-engine-go/internal/config"
	"bet-engine-go/internal/engine"
	"bet-engine-go/internal/monitoring"
	"bet-engine-go/internal/session"
	"bet-engine-go/internal/transport"

	"go.uber.org/zap"
)

func main() {
	userId := flag.Int64("user", 1, "Local user id for the console session")
	username := flag.String("username", "local", "Username for the console session")
	displayName := flag.String("name", "Local User", "Display name for the console session")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting betting engine")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	monitoring.Init()
	metricsServer := monitoring.StartMetricsServer(cfg.Metrics.Port, func(ctx context.Context) error {
		return services.DbService.Ping(ctx, cfg.Database.PingTimeout)
	})

	odds := betting.NewOddsService(cfg.Betting.HouseEdge)
	bets, err := betting.NewEngine(services.DbService, odds, cfg.Betting)
	if err != nil {
		zap.L().Fatal("Failed to initialize betting engine", zap.Error(err))
	}

	sessions := session.NewTracker(cfg.Session.IdleTimeout)
	sweeper := session.NewSweeper(sessions, cfg.Session.SweepInterval, func(swept int) {
		monitoring.FlowsExpired.Add(float64(swept))
	})
	sweeper.Start(ctx)

	var helper *assistant.Service
	if cfg.Assistant.APIKey != "" || cfg.Assistant.VoiceAPIKey != "" {
		helper = assistant.NewService(cfg.Assistant)
	} else {
		zap.L().Info("No assistant API keys configured, running without voice and Q&A")
	}

	console := transport.NewConsole(*userId, *username, *displayName, os.Stdin, os.Stdout)
	console.Start(ctx)

	dispatcher := engine.New(engine.Config{
		Store:      services.DbService,
		Sessions:   sessions,
		Bets:       bets,
		Odds:       odds,
		Assistant:  helper,
		Transport:  console,
		Currencies: services.Currencies,
		Betting:    cfg.Betting,
		RateLimit:  cfg.RateLimit,
	})
	dispatcher.Start(ctx)

	zap.L().Info("Engine running", zap.Int64("console_user", *userId))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the dispatcher before cancelling the root context so queued
	// actions drain against a live context instead of failing.
	done := make(chan struct{})
	go func() {
		dispatcher.Stop()
		sweeper.Stop()
		cancel()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("All components stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Shutdown timeout exceeded, forcing exit")
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
	}
}
