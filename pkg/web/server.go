// Package web exposes the moderation HTTP API and the live event feed.
package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "X-API-Key"

// Options configures a Server.
type Options struct {
	WebhookURL string
	APISecret  string
	// RequestsPerSecond and Burst bound each client IP.
	RequestsPerSecond float64
	Burst             int
}

// Server represents the web server
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	webhookURL string
	apiSecret  string
	limiters   *xsync.MapOf[string, *rate.Limiter]
	rate       rate.Limit
	burst      int
}

var (
	server *Server
)

// Init initializes the global web server
func Init(opts Options) *Server {
	server = NewServer(opts)
	return server
}

// Get returns the global web server
func Get() *Server {
	return server
}

// NewServer creates a new web server
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 100.0 / 60.0
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		webhookURL: opts.WebhookURL,
		apiSecret:  opts.APISecret,
		limiters:   xsync.NewMapOf[string, *rate.Limiter](),
		rate:       rate.Limit(opts.RequestsPerSecond),
		burst:      opts.Burst,
	}

	s.engine.Use(s.logsMiddleware())
	s.engine.Use(s.rateLimitMiddleware())

	s.setupErrorHandlers()

	return s
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// logsMiddleware logs every request with client IP and path.
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := logger.With(logger.Fields{
			"ip":      c.ClientIP(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() == http.StatusForbidden {
			log.Warn("Solicitud rechazada", "WebServer")
			go s.sendLogToWebhook(c.Request.Method, c.Request.URL.Path, c.ClientIP(), true)
			return
		}
		log.Info("Nueva solicitud", "WebServer")
		go s.sendLogToWebhook(c.Request.Method, c.Request.URL.Path, c.ClientIP(), false)
	}
}

// sendLogToWebhook sends a request summary to the Discord webhook
func (s *Server) sendLogToWebhook(method, path, ip string, suspicious bool) {
	if s.webhookURL == "" {
		return
	}

	title := fmt.Sprintf("💫 | Nueva solicitud al servidor web de tipo %s", method)
	color := 0x00AE86

	if suspicious {
		title = fmt.Sprintf("💫 | Solicitud Rechazada: %s %s", method, path)
		color = 0xFFA500
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{map[string]interface{}{
			"title":       title,
			"description": fmt.Sprintf("> **Ruta:** `%s`\n> **IP:** `%s`", path, ip),
			"color":       color,
			"timestamp":   time.Now().Format(time.RFC3339),
		}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

func (s *Server) limiterFor(ip string) *rate.Limiter {
	l, _ := s.limiters.LoadOrCompute(ip, func() *rate.Limiter {
		return rate.NewLimiter(s.rate, s.burst)
	})
	return l
}

// rateLimitMiddleware keeps one token bucket per client IP.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too Many Requests",
				"message": "Demasiadas solicitudes, por favor intente de nuevo más tarde.",
			})
			return
		}
		c.Next()
	}
}

// secretMiddleware rejects requests without the shared secret. An empty
// configured secret rejects everything.
func (s *Server) secretMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		if s.apiSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.apiSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Clave de API inválida o ausente.",
			})
			return
		}
		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	s.engine.HandleMethodNotAllowed = true

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "La ruta solicitada no existe.",
			"status":  404,
		})
	})

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "El método HTTP no está permitido para esta ruta.",
			"status":  405,
		})
	})
}

func (s *Server) prepare(port string) *http.Server {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer
}

func serve(hs *http.Server, port string) error {
	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")
	err := hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start serves until Shutdown is called.
func (s *Server) Start(port string) error {
	return serve(s.prepare(port), port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(port string) {
	hs := s.prepare(port)
	go func() {
		if err := serve(hs, port); err != nil {
			logger.Error(fmt.Sprintf("Error starting web server: %v", err), "WebServer")
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GET registers a GET route
func (s *Server) GET(path string, handlers ...gin.HandlerFunc) {
	s.engine.GET(path, handlers...)
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}
