package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bikeshop-backend/pkg/container"
	"bikeshop-backend/pkg/logger"
)

// startServices runs the startup checks and exposes the health endpoint.
func startServices(c *container.Container, cfg *Config) error {
	checks := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"Redis Connection", c.Redis.HealthCheck},
		{"Storage", func(ctx context.Context) error {
			if status := c.HealthCheck(ctx)["storage"]; status != "ok" {
				return fmt.Errorf("%s", status)
			}
			return nil
		}},
	}

	for _, check := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := check.fn(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		logger.Info("Startup check passed", map[string]interface{}{"check": check.name})
	}

	if c.Memory != nil {
		logger.Warn("Worker runs against in-memory storage it does not share with the API", nil)
	}

	go startHealthCheckServer(c, cfg.HealthPort)
	return nil
}

func startHealthCheckServer(c *container.Container, port string) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "UP", "service": "bikeshop-worker"})
	})
	router.GET("/ready", func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		deps := c.HealthCheck(checkCtx)
		if deps["storage"] != "ok" || deps["redis"] != "ok" {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "dependencies": deps})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "READY", "dependencies": deps})
	})

	logger.Info("Health check server starting", map[string]interface{}{"port": port})
	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Error("Health check server failed", err)
	}
}
