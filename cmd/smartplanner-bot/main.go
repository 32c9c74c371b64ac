package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartplanner/internal/clipper"
	"smartplanner/internal/config"
	"smartplanner/internal/database"
	"smartplanner/internal/llm"
	"smartplanner/internal/metrics"
	"smartplanner/internal/supabase"
	"smartplanner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.HasAIProvider() {
		log.Fatal("Set OPENROUTER_API_KEY or GEMINI_API_KEY to run the bot")
	}

	ctx := context.Background()

	// 2. Initialize the AI collaborator
	var textGen llm.TextGenerator
	if cfg.OpenRouterAPIKey != "" {
		textGen = llm.NewOpenRouterClient(cfg)
	} else {
		geminiGen, closer, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer closer.Close()
		textGen = geminiGen
	}

	// 3. Initialize the local SQLite database
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metricsStore := metrics.NewStore(db.SQL)
	sessions := telegram.NewSessionRepository(db.SQL)

	// 4. Initialize the backend clients
	store := supabase.NewClient(cfg)
	auth := supabase.NewAuth(cfg)

	recipeClipper := clipper.NewClipper(textGen)

	// 5. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, store, auth, recipeClipper, textGen, metricsStore, sessions)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 6. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
