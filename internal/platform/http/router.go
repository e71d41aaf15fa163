package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/weiwei-tsao/tenant-reconciler/internal/repository"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
)

// RunStore is the read side of persisted reconcile runs.
type RunStore interface {
	ListRuns(ctx context.Context, collection string, limit int) ([]model.ReconcileRun, error)
	GetRun(ctx context.Context, runID string) (model.ReconcileRun, error)
}

// Router wires HTTP handlers.
type Router struct {
	runs    RunStore
	origins string
}

func NewRouter(runs RunStore, allowedOrigins string) *gin.Engine {
	r := &Router{
		runs:    runs,
		origins: allowedOrigins,
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), r.corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/runs", r.listRuns)
		api.GET("/runs/:id", r.getRun)
	}

	return router
}

// corsMiddleware echoes the request origin when ALLOWED_ORIGINS lists it. An empty
// list or "*" allows any origin; unlisted origins get no CORS headers.
func (r *Router) corsMiddleware() gin.HandlerFunc {
	origins := strings.Split(r.origins, ",")
	trimmed := make([]string, 0, len(origins))
	allowAll := false
	for _, o := range origins {
		t := strings.TrimSpace(o)
		if t == "*" {
			allowAll = true
		}
		if t != "" {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) == 0 {
		allowAll = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := ""
		switch {
		case allowAll:
			allowed = "*"
		case origin != "":
			for _, o := range trimmed {
				if o == origin {
					allowed = origin
					break
				}
			}
		}
		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
			if allowed != "*" {
				c.Header("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *Router) listRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	runs, err := r.runs.ListRuns(c.Request.Context(), c.Query("collection"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.ReconcileRun{}
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (r *Router) getRun(c *gin.Context) {
	run, err := r.runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
