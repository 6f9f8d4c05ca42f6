package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tokoisi/backend/internal/cache"
	"tokoisi/backend/internal/config"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/httpapi"
	"tokoisi/backend/internal/logging"
	"tokoisi/backend/internal/report"
	"tokoisi/backend/internal/service"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/store/memory"
	pgstore "tokoisi/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	location, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("postgres migration failed", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", zap.String("backend", "postgres"))
	} else {
		repo = memory.NewSeeded(nil)
		logger.Info("repository ready", zap.String("backend", "memory"))
	}

	reportCache := cache.ReportCache(cache.NewMemoryReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL()))
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process report cache", zap.Error(err))
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("report cache ready", zap.String("backend", "redis"))
		}
	}

	reports := report.NewEngine(reportCache, cfg.ReportCacheTTL(), logger)
	svc := service.New(repo, reports, logger, location)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)

	if cfg.SeedSuperAdminEmail != "" {
		if err := auth.EnsureUser(ctx, cfg.SeedSuperAdminEmail, cfg.SeedSuperAdminPassword, "Super Admin", domain.RoleSuperAdmin); err != nil {
			logger.Fatal("seed super admin failed", zap.Error(err))
		}
		logger.Info("super admin ensured", zap.String("email", cfg.SeedSuperAdminEmail))
	}

	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}

	go func() {
		logger.Info("POS backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedSuperAdminEmail == "" {
		return nil
	}
	if err := validatePasswordStrength(cfg.SeedSuperAdminPassword); err != nil {
		return fmt.Errorf("SEED_SUPER_ADMIN_PASSWORD is too weak: %w", err)
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a known-weak list and
// passwords made of a single repeated character.
func validatePasswordStrength(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("must be at least 12 characters")
	}
	known := map[string]bool{
		"password1234": true, "123456789012": true, "qwertyuiop12": true,
		"adminadmin12": true, "superadmin12": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}
	return nil
}
