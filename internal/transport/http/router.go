package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yyogesh-03/real-time-order-management-system/internal/config"
	"github.com/yyogesh-03/real-time-order-management-system/internal/service"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

func NewRouter(svc *service.OrderService, cfg config.ServerConfig, rl config.RateLimitConfig, log *zap.SugaredLogger, health HealthCheck) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggingMiddleware(log))
	if rl.RPS > 0 {
		r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	}
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "not_found", "route not found")
	})

	r.GET("/health", healthHandler(health))
	h := &handlers{svc: svc, log: log, defaultUserID: cfg.DefaultUserID}
	h.register(r)
	return r
}

func healthHandler(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				fail(c, http.StatusServiceUnavailable, "unavailable", err.Error())
				return
			}
		}
		respond(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
