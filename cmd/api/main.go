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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"pennywise/internal/auth"
	"pennywise/internal/config"
	"pennywise/internal/database"
	"pennywise/internal/logger"
	"pennywise/internal/mail"
	"pennywise/internal/observability"
	"pennywise/internal/pagination"
	"pennywise/internal/server"
	"pennywise/internal/services"
	"pennywise/internal/validator"
)

// @title           Pennywise API
// @version         1.0
// @description     Pennywise tracks personal income and expenses and emails reports.

// @host      localhost:5000
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewManager(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := dbManager.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	tracing := ""
	if cfg.Tracing.Enabled() {
		shutdown, err := observability.InitTracer(ctx, cfg.Tracing, cfg.Env)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warnf("tracer shutdown error: %v", err)
			}
		}()
		tracing = cfg.Tracing.ServiceName
		log.Infof("Tracing enabled, exporting to %s (sample ratio %.2f)", cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	tokens := auth.NewManager(cfg.Auth.Secret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	log.Infow("token lifetimes", "access", tokens.AccessTTL().String(), "refresh", tokens.RefreshTTL().String())

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	transactionService := services.NewTransactionService(db, auditService)

	var refreshStore services.RefreshTokenStore
	if cfg.Auth.RefreshEnabled() {
		if cfg.RedisURL != "" {
			client, err := newRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()
			refreshStore = services.NewRedisRefreshTokenStore(client)
			log.Info("Refresh tokens enabled (redis store)")
		} else {
			refreshStore = services.NewGormRefreshTokenStore(db)
			log.Info("Refresh tokens enabled (database store)")
		}
	}
	authService := services.NewAuthService(userService, tokens, refreshStore, auditService)

	var sender mail.Sender
	if cfg.Mail.Configured() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		log.Infof("Mail relay %s:%d", cfg.Mail.Host, cfg.Mail.Port)
	} else {
		sender = mail.NewLogSender()
		log.Warn("EMAIL_USER/EMAIL_PASS not set; reports will be logged instead of sent")
	}
	sender = mail.NewProtectedSender(sender, mail.ProtectedConfig{Timeout: cfg.Mail.Timeout}, prom)
	reportService := services.NewReportService(sender, auditService)

	router := server.NewRouter(server.Deps{
		Users:          userService,
		Auth:           authService,
		Transactions:   transactionService,
		Reports:        reportService,
		Tokens:         tokens,
		DB:             dbManager,
		Prom:           prom,
		ServiceName:    tracing,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		PageLimits: pagination.Limits{
			DefaultSize: cfg.Server.DefaultPageSize,
			MaxSize:     cfg.Server.MaxPageSize,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Pennywise backend server on port %s", cfg.Server.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Shutdown complete")
	return nil
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return client, nil
}
