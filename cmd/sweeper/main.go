package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hooksync/internal/engine/webhooks"
	"hooksync/internal/pkg/logger"
	"hooksync/internal/platform/config"
	"hooksync/internal/platform/database"
	"hooksync/internal/platform/repositories"
	gitlabprovider "hooksync/internal/provider/gitlab"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	glClient, err := gitlabprovider.New(cfg.GitLab)
	if err != nil {
		log.Fatalf("Failed to build GitLab client: %v", err)
	}

	repo := repositories.NewWebhookRepository(db)
	verifier := webhooks.NewVerifier(repo, glClient, cfg.Webhook.CallbackURL)
	installer := webhooks.NewInstaller(repo, glClient, webhooks.InstallerConfig{
		CallbackURL: cfg.Webhook.CallbackURL,
		HookName:    cfg.Webhook.Name,
	})
	sweeper := webhooks.NewSweeper(repo, verifier, installer, cfg.Sweeper.BatchSize)

	log.Printf("Sweeper starting, interval %v, batch size %d", cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Sweeper.Interval)
	defer ticker.Stop()

	// First pass immediately, then on the tick.
	sweeper.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			sweeper.RunOnce(ctx)
		case <-ctx.Done():
			log.Println("Sweeper shutting down")
			return
		}
	}
}
