package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	verdant "github.com/verdanthq/verdant"
	"github.com/verdanthq/verdant/internal/storage"
	"gopkg.in/yaml.v3"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "path to config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg := storage.DefaultConfig()
	if data, err := os.ReadFile(*configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "verdant-web: parse config: %v\n", err)
			os.Exit(1)
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.AI.Gemini.APIKey = key
	}
	if secret := os.Getenv("VERDANT_JWT_SECRET"); secret != "" {
		cfg.Web.JWTSecret = secret
	}
	if cfg.Web.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "verdant-web: a JWT secret is required (config web.jwt_secret or VERDANT_JWT_SECRET)")
		os.Exit(1)
	}
	if *addr == "" {
		*addr = cfg.Web.Addr
	}

	engine, err := verdant.NewEngine(verdant.EngineConfig{
		DBPath:              cfg.Database.Path,
		AIProvider:          cfg.AI.Provider,
		GeminiAPIKey:        cfg.AI.Gemini.APIKey,
		GeminiModel:         cfg.AI.Gemini.Model,
		OllamaBaseURL:       cfg.AI.Ollama.BaseURL,
		OllamaModel:         cfg.AI.Ollama.Model,
		ScheduleTemperature: cfg.Temperatures.Schedule,
		ChatTemperature:     cfg.Temperatures.Chat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verdant-web: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	mux := newRouter(engine, []byte(cfg.Web.JWTSecret))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      logging(recovery(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // schedule generation can take a while
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("verdant-web: listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("verdant-web: %v", err)
		}
	}()

	<-done
	log.Println("verdant-web: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("verdant-web: shutdown error: %v", err)
	}
	log.Println("verdant-web: stopped")
}
