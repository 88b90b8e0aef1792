package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tutorchat/internal/transport/httpdto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler upgrades connections into hub clients.
type WSHandler struct {
	hub *Hub
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect identifies the user from the userId query parameter or the
// X-User-ID header and refuses the connection when neither is present.
func (h *WSHandler) Connect(c *gin.Context) {
	raw := c.Query("userId")
	if raw == "" {
		raw = c.GetHeader("X-User-ID")
	}
	if raw == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("missing user id", "UNAUTHORIZED"))
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)
}
