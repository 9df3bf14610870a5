package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	goRelay "github.com/MrEthical07/goRelay"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = int64(64 << 10)

// RequestIDHeader is read from and echoed to every request.
const RequestIDHeader = "X-Request-Id"

// Relay is the subset of [goRelay.Relay] the routes call.
type Relay interface {
	HandleTagAdded(ctx context.Context, ev goRelay.TagEvent) ([]goRelay.Outcome, error)
	Probe(ctx context.Context, repo string) goRelay.ProbeResult
	Health(ctx context.Context) goRelay.HealthStatus
}

// Options configures [NewRouter].
type Options struct {
	Secret       string
	Logger       *slog.Logger
	MaxBodyBytes int64
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
}

type server struct {
	relay   Relay
	logger  *slog.Logger
	maxBody int64
}

// NewRouter builds the gin engine serving relay.
func NewRouter(relay Relay, opts Options) *gin.Engine {
	s := &server{
		relay:   relay,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	r.GET("/healthz", s.health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := r.Group("/v1", RequireSecret(opts.Secret))
	v1.POST("/events/tag-added", s.tagAdded)
	v1.POST("/probe", s.probe)

	return r
}

func (s *server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(goRelay.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.Writer.Header().Get(RequestIDHeader),
		)
	}
}

func (s *server) readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		}
		return nil, false
	}
	return payload, true
}

func (s *server) tagAdded(c *gin.Context) {
	payload, ok := s.readBody(c)
	if !ok {
		return
	}

	var ev goRelay.TagEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	outcomes, err := s.relay.HandleTagAdded(c.Request.Context(), ev)
	switch {
	case errors.Is(err, goRelay.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, goRelay.ErrRelayClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("tag event failed", "issue", ev.IssueID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tag event failed"})
		return
	}

	if outcomes == nil {
		outcomes = []goRelay.Outcome{}
	}
	c.JSON(http.StatusAccepted, gin.H{"outcomes": outcomes})
}

type probeRequest struct {
	Repo string `json:"repo"`
}

func (s *server) probe(c *gin.Context) {
	payload, ok := s.readBody(c)
	if !ok {
		return
	}

	var req probeRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}

	c.JSON(http.StatusOK, s.relay.Probe(c.Request.Context(), req.Repo))
}

func (s *server) health(c *gin.Context) {
	h := s.relay.Health(c.Request.Context())

	// The throttle fails open, so a Redis outage degrades but does not stop the relay.
	state := "ok"
	if h.RedisConfigured && !h.RedisAvailable {
		state = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          state,
		"redisConfigured": h.RedisConfigured,
		"redisAvailable":  h.RedisAvailable,
		"redisLatencyMs":  h.RedisLatency.Milliseconds(),
		"appAuthEnabled":  h.AppAuthEnabled,
	})
}
