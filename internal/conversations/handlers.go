package conversations

import (
	"log/slog"
	"net/http"

	"github.com/ageniuscoder/mmsocial/backend/internal/auth"
	"github.com/ageniuscoder/mmsocial/backend/internal/httpx"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type Service struct {
	DB     *storage.DB
	Logger *slog.Logger
}

func Register(rg *gin.RouterGroup, db *storage.DB, logger *slog.Logger) {
	s := Service{
		DB:     db,
		Logger: logger.With("component", "conversations"),
	}
	rg.GET("/conversations", s.listMine)
}

func (s Service) listMine(c *gin.Context) {
	uid := auth.MustUserID(c)

	list, err := NewRegistry(s.DB.Conn()).ListForUser(c.Request.Context(), uid)
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
