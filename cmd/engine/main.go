package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rawblock/allocation-engine/internal/api"
	"github.com/rawblock/allocation-engine/internal/db"
	"github.com/rawblock/allocation-engine/internal/jobs"
	"github.com/rawblock/allocation-engine/internal/solver"
)

func main() {
	log.Println("Starting RawBlock Allocation Engine (Microservice: request-allocation-optimizer)...")

	// ─── Environment Configuration ──────────────────────────────────────
	// DATABASE_URL is optional: without it the engine solves and streams
	// but does not persist outcomes. Solver tunables have safe defaults.
	// ────────────────────────────────────────────────────────────────────

	var dbStore *db.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without persisting outcomes. Error: %v", err)
		} else {
			dbStore = conn
			defer dbStore.Close()
			if err := dbStore.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set; outcomes will not be persisted")
	}

	opts := solver.Options{
		Workers:    intEnvOrDefault("SOLVER_WORKERS", 1),
		NodeBudget: int64(intEnvOrDefault("SOLVER_NODE_BUDGET", 0)),
		MaxPivots:  intEnvOrDefault("SOLVER_MAX_PIVOTS", solver.DefaultMaxPivots),
	}
	if ms := intEnvOrDefault("SOLVER_TIME_BUDGET_MS", 0); ms > 0 {
		opts.TimeBudget = time.Duration(ms) * time.Millisecond
	}

	// Setup WebSocket Hub for progress streaming
	wsHub := api.NewHub()
	go wsHub.Run()

	runner := jobs.NewRunner(dbStore, wsHub.Broadcast, opts)

	// Setup the Gin Router
	r := api.SetupRouter(dbStore, runner, wsHub, opts)

	port := getEnvOrDefault("PORT", "5340")

	// Start the server
	log.Printf("Engine running on :%s (workers=%d)\n", port, opts.Workers)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a safe default.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// intEnvOrDefault parses an integer env var, falling back on absence or junk.
func intEnvOrDefault(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, val, fallback)
		return fallback
	}
	return n
}
