package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sitechat-backend/internal/config"
	"sitechat-backend/internal/database"
	"sitechat-backend/internal/handlers"
	"sitechat-backend/internal/middleware"
	"sitechat-backend/internal/models"
	"sitechat-backend/internal/router"
	"sitechat-backend/internal/services"
	"sitechat-backend/internal/session"
	"sitechat-backend/internal/websocket"
)

const (
	warmupDelay  = 800 * time.Millisecond
	prepareDelay = 500 * time.Millisecond
)

func main() {
	log.Println("🚀 Starting SiteChat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	mode := cfg.Mode()
	log.Println("✓ Environment variables loaded")
	if mode == models.ModeSimulated {
		log.Printf("✗ Missing credentials (%s), running in demo mode", strings.Join(cfg.MissingCredentials(), ", "))
	}

	// ──── Step 2: Initialize Redis Clients (optional) ────
	var publishClient, subscribeClient *redis.Client
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		publishClient, subscribeClient = redisClients.Publish, redisClients.Subscribe
		log.Println("✓ Redis connected")
	} else {
		log.Println("✓ Redis not configured, events delivered in process")
	}

	// ──── Step 3: Initialize Content and Chat Services ────
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	var fetcher services.Fetcher
	var chat services.ChatEngine
	if mode == models.ModeSimulated {
		fetcher = services.NewSimulatedFetcher(cfg.SimulatedStepDelay, cfg.MissingCredentials()...)
		chat = services.NewSimulatedChat(cfg.SimulatedStepDelay)
		log.Println("✓ Simulated fetcher and chat initialized")
	} else {
		fetcher = services.NewSourceRouter(
			services.NewFirecrawlFetcher(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey, httpClient),
			services.NewYouTubeFetcher(httpClient),
			services.NewPDFFetcher(httpClient),
		)
		log.Println("✓ Firecrawl fetcher initialized (YouTube and PDF sources enabled)")

		if cfg.ChatProvider == config.ProviderGemini {
			gemini, err := services.NewGeminiChat(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				log.Fatalf("✗ Gemini client initialization failed: %v", err)
			}
			defer gemini.Close()
			chat = gemini
			log.Printf("✓ Gemini chat initialized (model: %s)", cfg.GeminiModel)
		} else {
			chat = services.NewAzureChat(services.AzureConfig{
				Endpoint:   cfg.AzureEndpoint,
				APIKey:     cfg.AzureAPIKey,
				Deployment: cfg.AzureDeployment,
				APIVersion: cfg.AzureAPIVersion,
			}, httpClient)
			log.Printf("✓ Azure OpenAI chat initialized (deployment: %s)", cfg.AzureDeployment)
		}
	}

	// ──── Step 4: Start WebSocket Hub ────
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret, 0)
	wsHub := websocket.NewHub(publishClient, subscribeClient, sessionAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 5: Start Session Manager ────
	manager := session.NewManager(fetcher, chat, session.Options{
		Mode:         mode,
		Publisher:    wsHub,
		WarmupDelay:  warmupDelay,
		PrepareDelay: prepareDelay,
		IdleTTL:      cfg.SessionIdleTTL,
		OnEvict:      wsHub.Disconnect,
	})
	wsHub.SetSessionLookup(manager.Exists)
	manager.Start(time.Minute)

	createLimiter := middleware.NewRateLimiter(cfg.CreateSessionRateLimit, time.Minute)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		sessionAuth,
		handlers.NewSessionHandler(manager, sessionAuth, wsHub),
		handlers.NewMetaHandler(models.ModeResponse{
			Mode:     mode,
			Provider: cfg.ChatProvider,
			Missing:  cfg.MissingCredentials(),
		}),
		wsHub,
		createLimiter,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// URL and question requests wait for the outbound call
		WriteTimeout: cfg.HTTPClientTimeout + warmupDelay + prepareDelay + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		manager.Stop()
		createLimiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ SiteChat Backend ready on http://localhost:%s (mode: %s)", cfg.Port, mode)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
