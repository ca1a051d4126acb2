package main

import (
	"fmt"
	"log"
	"net/http"

	"hooksync/internal/api"
	"hooksync/internal/api/handlers"
	"hooksync/internal/api/middleware"
	"hooksync/internal/engine/webhooks"
	"hooksync/internal/pkg/logger"
	"hooksync/internal/platform/audit"
	"hooksync/internal/platform/auth"
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

	// Repositories
	webhookRepo := repositories.NewWebhookRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Provider + engine
	glClient, err := gitlabprovider.New(cfg.GitLab)
	if err != nil {
		log.Fatalf("Failed to build GitLab client: %v", err)
	}
	verifier := webhooks.NewVerifier(webhookRepo, glClient, cfg.Webhook.CallbackURL)
	installer := webhooks.NewInstaller(webhookRepo, glClient, webhooks.InstallerConfig{
		CallbackURL: cfg.Webhook.CallbackURL,
		HookName:    cfg.Webhook.Name,
	})
	webhookSvc := webhooks.NewService(webhookRepo, verifier, installer)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	auditLogger := audit.NewLogger(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, tokenSvc)
	webhookHandler := handlers.NewWebhookHandler(webhookSvc, auditLogger)
	eventsHandler := handlers.NewEventsHandler(webhookSvc)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:    authHandler,
		WebhookHandler: webhookHandler,
		EventsHandler:  eventsHandler,
		HealthHandler:  healthHandler,
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
