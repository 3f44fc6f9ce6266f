package api

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/allocation-engine/internal/db"
	"github.com/rawblock/allocation-engine/internal/jobs"
	"github.com/rawblock/allocation-engine/internal/metrics"
	"github.com/rawblock/allocation-engine/internal/solver"
	"github.com/rawblock/allocation-engine/internal/verify"
	"github.com/rawblock/allocation-engine/pkg/models"
)

type APIHandler struct {
	dbStore *db.Store
	runner  *jobs.Runner
	wsHub   *Hub
	opts    solver.Options
}

func SetupRouter(dbStore *db.Store, runner *jobs.Runner, wsHub *Hub, opts solver.Options) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://ops.example.net
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{dbStore: dbStore, runner: runner, wsHub: wsHub, opts: opts}

	limiter := NewRateLimiter(30, 10)

	api := r.Group("/api/v1")
	{
		// Public endpoints
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", wsHub.Subscribe)

		// Solve endpoints — authenticated and rate limited, solves burn CPU
		protected := api.Group("")
		protected.Use(AuthMiddleware(), limiter.Middleware())
		{
			protected.POST("/solve", handler.handleSolve)
			protected.POST("/jobs", handler.handleSubmitJob)
			protected.GET("/jobs", handler.handleListJobs)
			protected.GET("/jobs/:id", handler.handleGetJob)
			protected.GET("/history", handler.handleHistory)
		}
	}

	return r
}

// handleSolve runs a synchronous solve and returns the Outcome. Every
// optimal or partial assignment is audited against the raw instance before
// it leaves the process; an audit failure is a server bug, not a caller
// error, and is reported as 500.
func (h *APIHandler) handleSolve(c *gin.Context) {
	var inst models.Instance
	if err := c.ShouldBindJSON(&inst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed instance JSON", "detail": err.Error()})
		return
	}

	out := solver.Solve(c.Request.Context(), inst, h.opts)

	if out.Status == models.StatusInvalidInstance {
		c.JSON(http.StatusUnprocessableEntity, out)
		return
	}

	if len(out.Assignment) > 0 {
		if violations := verify.Audit(inst, out.Assignment); len(violations) > 0 {
			log.Printf("[API] assignment audit failed: %v", violations)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":      "Solver produced an assignment that failed the independent audit",
				"violations": violations,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome": out,
		"gap":     metrics.OptimalityGap(out.Stats, out.Count),
	})
}

// handleSubmitJob queues an asynchronous solve and returns its job id.
// Instance validation happens inside the job; a malformed instance surfaces
// as a failed job rather than an HTTP error.
func (h *APIHandler) handleSubmitJob(c *gin.Context) {
	var inst models.Instance
	if err := c.ShouldBindJSON(&inst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed instance JSON", "detail": err.Error()})
		return
	}

	jobID := h.runner.Submit(inst)
	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
}

func (h *APIHandler) handleGetJob(c *gin.Context) {
	view, ok := h.runner.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown job id"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *APIHandler) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.runner.List()})
}

// handleHistory lists persisted outcomes. Requires a database; returns 503
// when the engine is running without one.
func (h *APIHandler) handleHistory(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
		return
	}
	records, err := h.dbStore.RecentJobs(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": records})
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"solver": "simplex-bnb",
	})
}
