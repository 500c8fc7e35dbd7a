package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"

	"github.com/zaqqye/college_portal_backend/internal/config"
	"github.com/zaqqye/college_portal_backend/internal/database"
	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/routes"
	"github.com/zaqqye/college_portal_backend/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatal := func(msg string, err error) {
		logger.Error(ctx, msg, "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		fatal("database connection failed", err)
	}
	if err := database.Migrate(db); err != nil {
		fatal("database migration failed", err)
	}
	if cfg.RoomsSeedFile != "" {
		n, err := database.SeedRooms(ctx, db, cfg.RoomsSeedFile, logger)
		if err != nil {
			fatal("room seed failed", err)
		}
		logger.Info(ctx, "rooms seeded", "created", n, "file", cfg.RoomsSeedFile)
	}

	var sender mailer.Sender = mailer.LogSender{Log: logger}
	if cfg.SMTPConfigured() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Warn(ctx, "SMTP not configured, outgoing mail is only logged")
	}
	pool := mailer.NewPool(cfg.MailWorkerCount(), cfg.MailQueueCapacity(), sender, logger)
	pool.Start(ctx)

	hubs := ws.NewHubs()
	hubs.Run(ctx)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	routes.Register(r, routes.Deps{
		DB:         db,
		Cfg:        cfg,
		Mailer:     mailer.New(sender, pool, logger),
		Log:        logger,
		Hubs:       hubs,
		Responses:  cache.New(cfg.RoomsCacheTTL(), 2*cfg.RoomsCacheTTL()),
		UsedTokens: cache.New(cfg.ActionTokenTTL(), time.Hour),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logger.Info(ctx, "HTTP server starting", "port", cfg.Port, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server stopped", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info(ctx, "shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP server shutdown", "error", err)
	}

	// Stops the hubs and the mail workers.
	cancel()
	pool.Wait()
	logger.Info(shutdownCtx, "server stopped")
}
