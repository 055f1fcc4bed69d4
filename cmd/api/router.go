package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bikeshop-backend/internal/shared/middleware"
	"bikeshop-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		authed := v1.Group("", middleware.AuthMiddleware(c.JWTManager))
		setupBookingRoutes(authed, c)
		setupCouponRoutes(authed, c)
		setupRequestRoutes(authed, c)

		admin := v1.Group("/admin", middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
		setupAdminRequestRoutes(admin, c)
		setupAdminCouponRoutes(admin, c)
	}

	return router
}

// ========================================
// BOOKING ROUTES
// ========================================
func setupBookingRoutes(rg *gin.RouterGroup, c *container.Container) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", c.BookingHandler.Submit)
		bookings.POST("/quote", c.BookingHandler.Quote)
	}
}

// ========================================
// COUPON ROUTES
// ========================================
func setupCouponRoutes(rg *gin.RouterGroup, c *container.Container) {
	coupons := rg.Group("/coupons")
	{
		coupons.POST("/evaluate", c.CouponPublicHandler.Evaluate)
		coupons.GET("/available", c.CouponPublicHandler.ListAvailable)
	}
}

// ========================================
// REQUEST ROUTES
// ========================================
func setupRequestRoutes(rg *gin.RouterGroup, c *container.Container) {
	requests := rg.Group("/requests")
	{
		requests.GET("", c.RequestHandler.ListMine)
		requests.GET("/:id", c.RequestHandler.GetMine)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRequestRoutes(admin *gin.RouterGroup, c *container.Container) {
	requests := admin.Group("/requests")
	{
		requests.GET("", c.RequestHandler.AdminList)
		requests.GET("/:id", c.RequestHandler.AdminGet)
		requests.PATCH("/:id/status", c.RequestHandler.TransitionStatus)
	}
}

func setupAdminCouponRoutes(admin *gin.RouterGroup, c *container.Container) {
	coupons := admin.Group("/coupons")
	{
		coupons.POST("", c.CouponAdminHandler.CreateCoupon)
		coupons.GET("", c.CouponAdminHandler.ListCoupons)
		coupons.GET("/:id", c.CouponAdminHandler.GetCoupon)
		coupons.PUT("/:id", c.CouponAdminHandler.UpdateCoupon)
		coupons.DELETE("/:id", c.CouponAdminHandler.DeleteCoupon)
		coupons.GET("/:id/usages/export", c.CouponAdminHandler.ExportUsages)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		deps := appCtx.HealthCheck(ctx)

		statusCode := http.StatusOK
		status := "healthy"
		if deps["storage"] != "ok" {
			statusCode = http.StatusServiceUnavailable
			status = "unhealthy"
		}

		health := gin.H{
			"status":       status,
			"version":      appCtx.Config.App.Version,
			"environment":  appCtx.Config.App.Environment,
			"dependencies": deps,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		}

		if appCtx.DB != nil {
			if stats, err := appCtx.DB.Stats(); err == nil {
				health["pool"] = stats
			}
		}

		c.JSON(statusCode, health)
	}
}
