/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ResourcePulse allocation and ledger engine
  server. Handles configuration, dependency injection, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize the store (SQLite, or in-memory with -mock)
  3. Create API handler with the engine services
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence over environment variables:
    -port / PORT              HTTP server port (default: 8080)
    -db   / DATABASE_PATH     SQLite database path (default: resourcepulse.db)
                              Use ":memory:" for in-memory SQLite
    -mock / MOCK_DB           Use the pure in-memory store, no SQLite

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/resourcepulse.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port with the mock store
  ./server -port=3000 -mock

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/resourcepulse/engine/api"
	"github.com/resourcepulse/engine/engine"
	memstore "github.com/resourcepulse/engine/engine/store"
	"github.com/resourcepulse/engine/store/sqlite"
)

func main() {
	// .env is optional; flags below override anything it sets.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "resourcepulse.db"), "SQLite database path")
	mock := flag.Bool("mock", envBool("MOCK_DB"), "use the in-memory store instead of SQLite")
	flag.Parse()

	// Initialize store
	var store engine.TxStore
	if *mock {
		log.Println("Using in-memory store (data is not persisted)")
		store = memstore.NewTxMemory()
	} else {
		s, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer s.Close()
		store = s
	}

	// Initialize handler and router
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
