package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zaqqye/college_portal_backend/internal/models"
)

var upgrader = websocket.Upgrader{
	// Browsers connect from the frontend origin; the JWT is the access check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WardenHandler expects AuthMiddleware and a warden role check upstream.
func WardenHandler(hubs *Hubs) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Warden == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Realtime not available"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &wardenClient{
			pump: pump{conn: conn, send: make(chan []byte, sendBufferSize)},
		}
		if !handoff(hubs.Warden.register, client, hubs.Warden.done) {
			conn.Close()
			return
		}

		go client.write()
		client.read(func() { handoff(hubs.Warden.unregister, client, hubs.Warden.done) })
	}
}

func StudentHandler(hubs *Hubs) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Student == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Realtime not available"})
			return
		}
		user := c.MustGet("user").(models.User)
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &studentClient{
			pump:   pump{conn: conn, send: make(chan []byte, sendBufferSize)},
			userID: user.ID,
		}
		if !handoff(hubs.Student.register, client, hubs.Student.done) {
			conn.Close()
			return
		}

		go client.write()
		client.read(func() { handoff(hubs.Student.unregister, client, hubs.Student.done) })
	}
}
