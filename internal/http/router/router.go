package router

import (
	"context"
	"net/http"
	"time"

	apphttp "studio_sales_backend/internal/http"
	"studio_sales_backend/internal/http/middleware"
	"studio_sales_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes  = 256 << 10
	webhookRate   = rate.Limit(20)
	webhookBurst  = 40
	healthTimeout = 2 * time.Second
)

// New builds the gin engine and mounts every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))
	engine.Use(middleware.MaxBodyBytes(maxBodyBytes))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				app.Logger.Error("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := httpkit.NewIPRateLimiter(webhookRate, webhookBurst, app.Logger)
	v1 := engine.Group("/api/v1")
	v1.Use(limiter.RateLimit())

	apiKey := httpkit.APIKeyRequired(app.Config.GetWebhookAPIKey())
	routes := &apphttp.RouterContext{
		Engine:   engine,
		V1:       v1,
		Webhooks: v1.Group("/webhook", apiKey),
		Admin:    v1.Group("/admin", apiKey),
	}
	for _, module := range app.Modules {
		module.RegisterRoutes(routes)
		app.Logger.Info("module registered", "module", module.Name())
	}
	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", httpkit.HeaderAPIKey, httpkit.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", httpkit.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() || len(cfg.GetCORSOrigins()) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}
