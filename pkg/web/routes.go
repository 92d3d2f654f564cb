package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Moderation is the part of the moderation service the API calls.
type Moderation interface {
	Warnings(ctx context.Context, user string) ([]models.WarningRecord, error)
	Warn(ctx context.Context, mod moderation.Actor, user, reason string, ref models.ChannelRef, now time.Time) (moderation.WarnResult, error)
	Clear(ctx context.Context, mod moderation.Actor, user string) (int, error)
	TotalWarnings(ctx context.Context) (int, error)
}

// Retention reads and updates the live retention policy.
type Retention interface {
	Get() models.RetentionPolicy
	Update(ctx context.Context, p models.RetentionPolicy) error
}

// API holds what the routes need.
type API struct {
	Moderation Moderation
	Retention  Retention
	Feed       *Hub
	// DefaultChannel receives escalation notices for API-issued warnings.
	DefaultChannel models.ChannelRef
	DatabaseStatus func() (string, bool)
	BotReady       func() bool
	Now            func() time.Time
}

// apiActor is the moderator identity used when a request names none.
const apiActor = "api"

type warnRequest struct {
	User      string `json:"user"`
	Reason    string `json:"reason"`
	Moderator string `json:"moderator"`
}

// SetupAPIRoutes registers every route on s.
func SetupAPIRoutes(s *Server, api API) {
	if api.Now == nil {
		api.Now = time.Now
	}

	public := s.Group("/api")
	{
		public.GET("/health", healthHandler)
		public.GET("/status", api.statusHandler)
	}
	s.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := s.Group("/", s.secretMiddleware())
	{
		protected.GET("/warnings/:user", api.listWarnings)
		protected.POST("/warnings", api.addWarning)
		protected.DELETE("/warnings/:user", api.clearWarnings)

		protected.GET("/settings/retention", api.getRetention)
		protected.PUT("/settings/retention", api.putRetention)

		if api.Feed != nil {
			protected.GET("/events/ws", api.Feed.Handle)
		}
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "WarnBot is running",
	})
}

func (api API) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "n/a", true
	if api.DatabaseStatus != nil {
		dbStatus, dbOnline = api.DatabaseStatus()
	}
	botOnline := api.BotReady != nil && api.BotReady()

	status := "ok"
	if !dbOnline || !botOnline {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
		},
	})
}

func (api API) listWarnings(c *gin.Context) {
	recs, err := api.Moderation.Warnings(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(recs) == 0 {
		writeError(c, moderation.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     recs[0].User,
		"total":    len(recs),
		"warnings": recs,
	})
}

func (api API) addWarning(c *gin.Context) {
	var req warnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "El cuerpo debe ser JSON con los campos user y reason.",
		})
		return
	}
	if strings.TrimSpace(req.User) == "" {
		writeError(c, moderation.ErrInvalidArgument)
		return
	}

	mod := moderation.Actor{ID: apiActor, Moderator: true}
	if req.Moderator != "" {
		mod.ID = req.Moderator
	}

	res, err := api.Moderation.Warn(c.Request.Context(), mod, req.User, req.Reason, api.DefaultChannel, api.Now())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     res.Record.ID,
		"user":   res.Record.User,
		"reason": res.Record.Reason,
		"time":   res.Record.Timestamp,
		"total":  res.Total,
	})
}

func (api API) clearWarnings(c *gin.Context) {
	n, err := api.Moderation.Clear(c.Request.Context(), moderation.Actor{ID: apiActor, Moderator: true}, c.Param("user"))
	if err != nil {
		writeError(c, err)
		return
	}
	if n == 0 {
		writeError(c, moderation.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (api API) getRetention(c *gin.Context) {
	c.JSON(http.StatusOK, api.Retention.Get())
}

func (api API) putRetention(c *gin.Context) {
	var p models.RetentionPolicy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Se esperaba {autoclear_days, notify_autoclear}.",
		})
		return
	}
	if err := api.Retention.Update(c.Request.Context(), p); err != nil {
		writeError(c, err)
		return
	}
	logger.With(logger.Fields{"autoclear_days": p.MaxAgeDays, "notify_autoclear": p.NotifyOnSweep}).
		Info("Política de retención actualizada", "WebServer")
	c.JSON(http.StatusOK, api.Retention.Get())
}

// writeError maps domain errors to status codes. Internal detail is logged,
// never returned.
func writeError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "Internal Server Error", "Ocurrió un error inesperado."

	switch {
	case errors.Is(err, moderation.ErrNotFound):
		status, code, message = http.StatusNotFound, "Not Found", "El usuario no tiene advertencias."
	case errors.Is(err, moderation.ErrUnauthorized):
		status, code, message = http.StatusForbidden, "Forbidden", "Se requieren permisos de moderador."
	case errors.Is(err, moderation.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "Bad Request", "Parámetros inválidos."
	case moderation.IsStoreError(err):
		status, code, message = http.StatusServiceUnavailable, "Service Unavailable", "El almacenamiento no está disponible."
	}

	if status >= http.StatusInternalServerError {
		logger.With(logger.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}).
			Error(err.Error(), "WebServer")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
