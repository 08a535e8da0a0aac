package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware reuses the caller's X-Request-ID or mints one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LoggingMiddleware prints request/response metrics.
func LoggingMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", requestID(c))
	}
}

// RecoveryMiddleware turns a handler panic into a 500 envelope.
func RecoveryMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorw("panic serving request", "path", c.Request.URL.Path, "request_id", requestID(c), "panic", recovered)
		fail(c, http.StatusInternalServerError, "server_error", "Internal Server Error")
	})
}

// visitorIdle is how long a client's bucket survives without requests.
const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors hands out one token bucket per client IP and forgets idle clients.
type visitors struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	byIP    map[string]*visitor
	sweptAt time.Time
}

func newVisitors(rps, burst int, idle time.Duration) *visitors {
	return &visitors{limit: rate.Limit(rps), burst: burst, idle: idle, byIP: make(map[string]*visitor)}
}

func (v *visitors) limiter(ip string, now time.Time) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	if now.Sub(v.sweptAt) > v.idle {
		for k, e := range v.byIP {
			if now.Sub(e.lastSeen) > v.idle {
				delete(v.byIP, k)
			}
		}
		v.sweptAt = now
	}
	e, ok := v.byIP[ip]
	if !ok {
		e = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.byIP[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byIP)
}

// RateLimitMiddleware applies a token bucket per client IP.
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	return rateLimit(newVisitors(rps, burst, visitorIdle))
}

func rateLimit(v *visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.limiter(c.ClientIP(), time.Now()).Allow() {
			c.Header("Retry-After", "1")
			fail(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		c.Next()
	}
}
