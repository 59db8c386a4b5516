package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nliest/converse-be/internal/api"
	"github.com/nliest/converse-be/internal/auth"
	"github.com/nliest/converse-be/internal/config"
	"github.com/nliest/converse-be/internal/database"
	"github.com/nliest/converse-be/internal/llm"
	"github.com/nliest/converse-be/internal/logger"
	"github.com/nliest/converse-be/internal/monitoring"
	"github.com/nliest/converse-be/internal/services"
	"github.com/nliest/converse-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.AppEnv)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenService(cfg.JWTSecret)
	userService := services.NewUserService(db)
	chatService := services.NewChatService(db)
	eventService := services.NewEventService(db)
	completer := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ChatModel)
	assistantService := services.NewAssistantService(chatService, eventService, completer, hub)

	// Set up and run the background maintenance janitor
	janitor, err := monitoring.NewJanitor(chatService, eventService, cfg.JanitorSchedule, time.Duration(cfg.OrphanGraceMins)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize janitor")
	}
	go janitor.Run()

	// Set up and run the background stats updater
	statUpdater, err := monitoring.NewStatUpdater(hub, eventService, int32(os.Getpid()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize stat updater")
	}
	go statUpdater.Run()

	// Set up router
	router := api.NewRouter(cfg, hub, tokens, userService, chatService, assistantService, eventService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()
	statUpdater.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
