// Package server assembles the HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ageniuscoder/mmsocial/backend/internal/auth"
	"github.com/ageniuscoder/mmsocial/backend/internal/chat"
	"github.com/ageniuscoder/mmsocial/backend/internal/config"
	"github.com/ageniuscoder/mmsocial/backend/internal/conversations"
	"github.com/ageniuscoder/mmsocial/backend/internal/httpx"
	"github.com/ageniuscoder/mmsocial/backend/internal/messages"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/ageniuscoder/mmsocial/backend/internal/users"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// Server owns the process-wide collaborators shared by the handlers.
type Server struct {
	Engine   *gin.Engine
	Hub      *chat.Hub
	Messages *messages.Service
}

func New(cfg config.Config, db *storage.DB, logger *slog.Logger) *Server {
	presence := chat.NewPresence()
	hub := chat.NewHub(presence, logger)
	msgs := messages.NewService(db, chat.NewDispatcher(presence, logger), logger)
	accounts := users.NewService(db, cfg.Auth.JWTSecret, cfg.Auth.JWTTTLMin, logger)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	accounts.RegisterPublic(api.Group("/auth"))
	chat.RegisterWS(api, hub, cfg.Auth.JWTSecret, chat.Options{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	})

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.Auth.JWTSecret))
	accounts.RegisterProtected(protected)
	messages.Register(protected, msgs)
	conversations.Register(protected, db, logger)
	chat.RegisterPresence(protected, hub)

	return &Server{Engine: r, Hub: hub, Messages: msgs}
}
