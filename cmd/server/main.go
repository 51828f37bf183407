/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance tracking server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store (migrates the schema)
  3. Seed the system break policy if the database has none
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: attendance.db)
           Use ":memory:" for an in-memory database
  -policy  Optional policy file (YAML or JSON); when given it replaces
           the stored system break policy at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/attendance.db"

  # Run with a policy file
  ./server -policy=./policy.yaml

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "attendance.db", "SQLite database path")
	policyPath := flag.String("policy", "", "policy file (YAML or JSON) to load at startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed or replace the system break policy
	if err := seedPolicy(context.Background(), store, *policyPath); err != nil {
		log.Fatalf("Failed to set up break policy: %v", err)
	}

	// Handler and router
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
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
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

// seedPolicy makes sure the database has a system break policy. A -policy
// file always wins; otherwise the built-in default is written only when
// nothing is stored yet.
func seedPolicy(ctx context.Context, store *sqlite.Store, policyPath string) error {
	if policyPath != "" {
		pol, notes, err := factory.NewPolicyFactory().LoadFile(policyPath)
		if err != nil {
			return err
		}
		for _, n := range notes {
			log.Printf("Policy file adjusted: %s", n)
		}
		return store.SaveSystemPolicy(ctx, pol)
	}

	_, err := store.SystemPolicy(ctx)
	if errors.Is(err, attendance.ErrNotFound) {
		log.Println("No break policy configured, seeding defaults")
		return store.SaveSystemPolicy(ctx, engine.DefaultPolicy())
	}
	return err
}
