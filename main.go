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

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/uptask-be/internal/api"
	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/config"
	"github.com/isdelr/uptask-be/internal/logger"
	"github.com/isdelr/uptask-be/internal/mail"
	"github.com/isdelr/uptask-be/internal/maintenance"
	"github.com/isdelr/uptask-be/internal/services"
	"github.com/isdelr/uptask-be/internal/store"
	"github.com/isdelr/uptask-be/internal/websocket"
)

func main() {
	flags := config.NewFlagSet(os.Args[0])
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse flags")
	}

	// Load configuration
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.Production)

	// Set up the store
	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize store")
	}
	defer st.Close()

	// Set up mail delivery
	delivery, err := newDeliveryMailer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}
	var mailer mail.Mailer = delivery
	var worker *mail.Worker
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("uptask-be"))
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()

		worker = mail.NewWorker(nc, delivery)
		if err := worker.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start mail worker")
		}
		mailer = mail.NewQueueMailer(nc)
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	jwtManager := auth.NewJWTManager(cfg.JWTSecret)
	eventService := services.NewEventService(st, hub)
	svc := api.Services{
		Auth:     services.NewAuthService(st, mail.NewAuthEmail(mailer, cfg.ClientURL), jwtManager, services.DefaultHasher),
		Projects: services.NewProjectService(st, eventService),
		Tasks:    services.NewTaskService(st, eventService),
		Team:     services.NewTeamService(st, eventService),
		Notes:    services.NewNoteService(st, eventService),
		Events:   eventService,
	}

	// Set up and run the background scheduler
	scheduler, err := maintenance.NewScheduler(st, cfg.TokenSweepSpec)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	scheduler.Start()

	// Set up router
	router := api.NewRouter(api.Options{ClientURL: cfg.ClientURL, AllowNoOrigin: cfg.AllowNoOrigin}, hub, jwtManager, st, svc)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("driver", cfg.DatabaseDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	scheduler.Stop()
	hub.Stop()
	if worker != nil {
		worker.Stop()
	}

	log.Info().Msg("Server exiting")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseDriver == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase)
	}
	return store.NewSQLiteStore(cfg.DatabasePath)
}

// newDeliveryMailer returns the mailer that actually hands messages off:
// SMTP when a host is configured, the log otherwise.
func newDeliveryMailer(cfg *config.Config) (mail.Mailer, error) {
	if cfg.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set, emails will be logged instead of sent")
		return mail.LogMailer{}, nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
	})
}
