package messages

import (
	"github.com/ageniuscoder/mmsocial/backend/internal/auth"
	"github.com/ageniuscoder/mmsocial/backend/internal/httpx"
	"github.com/gin-gonic/gin"
)

type sendReq struct {
	Message string `json:"message"`
}

type handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := handler{svc: svc}
	rg.POST("/messages/send/:id", h.send)
	rg.GET("/messages/:id", h.fetch)
}

func (h handler) send(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	msg, err := h.svc.Send(c.Request.Context(), uid, c.Param("id"), req.Message)
	if err != nil {
		httpx.Fail(c, h.svc.Logger, err)
		return
	}
	httpx.Created(c, msg)
}

func (h handler) fetch(c *gin.Context) {
	uid := auth.MustUserID(c)
	var page Page
	if err := c.ShouldBindQuery(&page); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	list, err := h.svc.Conversation(c.Request.Context(), uid, c.Param("id"), page)
	if err != nil {
		httpx.Fail(c, h.svc.Logger, err)
		return
	}
	httpx.OK(c, list)
}
