package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	healthhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/health/handler"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/session"
	sessiondomain "github.com/pranay-th/TGBH-CheeseBurger/internal/session/domain"
	telemetryhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/handler"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RouterDeps holds the handlers mounted on the HTTP router.
type RouterDeps struct {
	// WSPath is the WebSocket endpoint path (e.g. "/ws").
	WSPath    string
	WebSocket http.Handler
	// Ingest serves POST /api/events. If nil the route is not mounted.
	Ingest   *telemetryhandler.Ingest
	Health   *healthhandler.Checker
	Registry *session.Registry
	Logger   *zap.Logger
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Clients     int                     `json:"clients"`
	MaxIdleMs   int64                   `json:"maxIdleMs"`
	Connections []sessiondomain.Session `json:"connections"`
}

// NewRouter returns the gin engine serving the WebSocket endpoint, health, stats and HTTP ingest.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := logging.OrNop(deps.Logger).Named("http")
	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger), gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Error("panic recovered", zap.String("path", c.Request.URL.Path), zap.Any("panic", err))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))

	if deps.WebSocket != nil {
		r.GET(deps.WSPath, gin.WrapH(deps.WebSocket))
	}
	r.GET("/health", deps.Health.HTTP)
	if deps.Registry != nil {
		r.GET("/stats", stats(deps.Registry))
	}
	if deps.Ingest != nil {
		deps.Ingest.Register(r)
	}
	return r
}

func stats(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		conns := registry.Snapshot()
		c.JSON(http.StatusOK, StatsResponse{
			Clients:     len(conns),
			MaxIdleMs:   registry.MaxIdle().Milliseconds(),
			Connections: conns,
		})
	}
}

// RequestID sets X-Request-ID on the response, reusing the caller's value when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request once it completes. WebSocket requests complete when the
// connection closes.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(RequestIDHeader)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
