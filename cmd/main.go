package main

import (
	"log"
	"time"

	"github.com/oncoregistry/internal/api"
	"github.com/oncoregistry/internal/auth"
	"github.com/oncoregistry/internal/config"
	"github.com/oncoregistry/internal/database"
	"github.com/oncoregistry/internal/notify"
	"github.com/oncoregistry/internal/registry"
	"github.com/oncoregistry/internal/report"
	"github.com/oncoregistry/internal/schedule"
	"github.com/oncoregistry/internal/store"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	st := store.New(db)

	// Alert and delivery channels
	dispatcher := notify.NewDispatcher(&notify.Config{
		SlackToken:     cfg.Alert.Slack.Token,
		SlackChannel:   cfg.Alert.Slack.Channel,
		SMTPHost:       cfg.Alert.Email.SMTPHost,
		SMTPPort:       cfg.Alert.Email.SMTPPort,
		EmailFrom:      cfg.Alert.Email.From,
		EmailPassword:  cfg.Alert.Email.Password,
		AlertReceivers: cfg.Alert.Email.Receivers,
	})
	resolver := notify.NewRecipientResolver(db)
	deliverer := notify.NewEmailDeliverer(cfg.Alert.Email.SMTPHost, cfg.Alert.Email.SMTPPort,
		cfg.Alert.Email.From, cfg.Alert.Email.Password)

	// Execution pipeline
	calc := schedule.NewCalculator()
	generator := report.NewRegistryGenerator(db, cfg.Reports.OutputDir)
	pipeline := report.NewPipeline(st, generator, generator, calc, dispatcher, resolver, deliverer)

	// Scheduler: live timers, worker pool and lifecycle manager
	jobRegistry := schedule.NewRegistry(pipeline, cfg.Reports.Workers, cfg.Reports.ExecutionTimeout)
	jobRegistry.Start()
	defer jobRegistry.Stop()

	manager := schedule.NewManager(st, calc, jobRegistry)
	if err := manager.ReconcileAtStartup(); err != nil {
		log.Fatalf("Failed to reconcile schedules: %v", err)
	}

	// Retention sweeper
	sweeper := schedule.NewSweeper(st, time.Duration(cfg.Reports.RetentionDays)*24*time.Hour,
		cfg.Reports.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// API server
	authenticator := auth.NewAuthenticator(cfg.Server.JWTSecret, db)
	server := api.NewServer(db, authenticator, st, manager, registry.NewService(db))
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
