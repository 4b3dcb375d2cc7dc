// Package main запускает HTTP-сервер сервиса учёта посещаемости.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mkarpenko/attendance-system/internal/cache"
	"github.com/mkarpenko/attendance-system/internal/config"
	"github.com/mkarpenko/attendance-system/internal/handler"
	"github.com/mkarpenko/attendance-system/internal/middleware"
	"github.com/mkarpenko/attendance-system/internal/notify"
	"github.com/mkarpenko/attendance-system/internal/repository"
	"github.com/mkarpenko/attendance-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("timezone error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var relay *notify.Client
	if cfg.RelayAddress != "" {
		relay = notify.NewClient(cfg.RelayAddress)
	}

	var reportCache cache.ReportCache
	if cfg.RedisAddress != "" {
		redisCache, err := cache.NewRedisReportCache(cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer redisCache.Close()
		reportCache = redisCache
	}

	svc := service.NewService(repo, relay, reportCache, loc, cfg.CutoffEnabled, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware("attendance-secret")
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновых часов расписания
	g.Go(func() error {
		svc.StartScheduleClock(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting attendance server", "addr", cfg.RunAddress, "timezone", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
