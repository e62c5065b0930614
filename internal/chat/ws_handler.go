package chat

import (
	"net/http"
	"slices"

	"github.com/ageniuscoder/mmsocial/backend/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Options struct {
	SendBuffer int
	// AllowedOrigins restricts browser origins; empty allows any.
	AllowedOrigins []string
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		},
	}
}

// RegisterWS mounts GET /ws for authenticated clients.
// Auth works via:
// 1) Header: Authorization: Bearer <JWT>
// 2) Query:  ?token=<JWT>
func RegisterWS(rg *gin.RouterGroup, hub *Hub, jwtSecret string, opts Options) {
	upgrader := newUpgrader(opts.AllowedOrigins)

	rg.GET("/ws", func(c *gin.Context) {
		token := auth.BearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		cl, err := auth.ParseToken(jwtSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		client := NewClient(hub, conn, cl.UserID, opts.SendBuffer)
		hub.Attach(cl.UserID, client)

		go client.writePump()
		go client.readPump()
	})
}

// RegisterPresence mounts GET /users/online, the snapshot sent to websocket
// clients as onlineUsers.
func RegisterPresence(rg *gin.RouterGroup, hub *Hub) {
	rg.GET("/users/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": hub.Presence.Online()})
	})
}
