// verdant-mcp is a standalone MCP server for the Verdant garden engine.
// It connects directly to Verdant's SQLite database, serving garden,
// schedule, and assistant tools over JSON-RPC stdio. Designed to run as
// a per-household MCP server for voice or chat frontends.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	verdant "github.com/verdanthq/verdant"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".local", "share", "verdant", "verdant.db")

	dbPath := flag.String("db", defaultDB, "path to verdant database")
	provider := flag.String("provider", "gemini", "AI provider (gemini or ollama)")
	ollamaURL := flag.String("ollama", "http://localhost:11434", "Ollama base URL")
	userID := flag.Int64("user", 1, "default user ID for garden operations")
	scan := flag.Bool("scan", false, "run a background due-today scan loop")
	interval := flag.Duration("interval", time.Hour, "scan interval (with --scan)")
	flag.Parse()

	engine, err := verdant.NewEngine(verdant.EngineConfig{
		DBPath:        *dbPath,
		AIProvider:    *provider,
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OllamaBaseURL: *ollamaURL,
	})
	if err != nil {
		log.Fatalf("create verdant engine: %v", err)
	}
	defer engine.Close()

	srv := newServer(engine, *userID)
	if *scan {
		sc := newScanner(engine, *interval)
		sc.start(context.Background())
		defer sc.stop()
		srv.scanner = sc
	}

	if err := srv.run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
