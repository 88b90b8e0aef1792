package server

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/events"
	chaterrors "tutorchat/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client represents a single WebSocket connection
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    uuid.UUID
	clientID  string
	closeOnce sync.Once
	logger    *WebSocketLogger
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   userID,
		clientID: uuid.NewString(),
		logger:   hub.logger,
	}
}

func (c *Client) readPump() {
	// unregister runs on every exit path so presence cleanup is guaranteed
	defer func() {
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket unexpected close", c.userID, c.clientID, err)
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.handleFrame(message)
	}
}

func (c *Client) handleFrame(message []byte) {
	frame, err := ParseFrame(message)
	if err != nil {
		c.logger.Warn("malformed frame", c.userID, c.clientID, zap.Error(err))
		return
	}

	switch frame.Type {
	case FrameSendMessage:
		c.handleSendMessage(frame)
	case FrameTypingStart:
		if !c.authorized(frame.ConversationID) {
			return
		}
		c.broadcastConversationEvent(events.TypeUserTyping, frame.ConversationID)
	case FrameTypingStop:
		if !c.authorized(frame.ConversationID) {
			return
		}
		c.broadcastConversationEvent(events.TypeUserStoppedTyping, frame.ConversationID)
	case FrameMarkRead:
		c.handleMarkRead(frame)
	case FrameJoinConversation:
		if !c.authorized(frame.ConversationID) {
			return
		}
		c.hub.registry.JoinConversation(c.userID, frame.ConversationID)
		c.broadcastConversationEvent(events.TypeUserJoined, frame.ConversationID)
	default:
		c.logger.Warn("unknown frame type", c.userID, c.clientID, zap.ByteString("frame", message))
	}
}

func (c *Client) handleSendMessage(frame Frame) {
	resp, err := c.hub.messages.Send(
		context.Background(),
		frame.ConversationID,
		c.userID,
		frame.Content,
		chat.MessageKind(frame.MessageType),
	)
	if err != nil {
		c.sendError(frame.ConversationID, err)
		return
	}

	conversationID := frame.ConversationID
	senderID := c.userID
	c.hub.Broadcast(events.Event{
		Type:           events.TypeNewMessage,
		ConversationID: &conversationID,
		UserID:         &senderID,
		Message:        &resp,
		Timestamp:      time.Now(),
	})
}

func (c *Client) handleMarkRead(frame Frame) {
	if err := c.hub.messages.MarkAllRead(context.Background(), frame.ConversationID, c.userID); err != nil {
		c.logger.Error("mark read failed", c.userID, c.clientID, err)
		return
	}
	c.broadcastConversationEvent(events.TypeMessagesRead, frame.ConversationID)
}

// authorized checks the persistent participant record before a frame may
// touch the registry or fan a conversation event out. Denials come back to
// the sender as a directed ERROR, the same way a rejected SEND_MESSAGE does.
func (c *Client) authorized(conversationID uuid.UUID) bool {
	if c.hub.access == nil {
		c.sendError(conversationID, chaterrors.ErrForbidden)
		return false
	}
	if err := c.hub.access.CanViewConversation(context.Background(), c.userID, conversationID); err != nil {
		c.logger.Warn("conversation frame rejected", c.userID, c.clientID, zap.Error(err))
		c.sendError(conversationID, err)
		return false
	}
	return true
}

func (c *Client) broadcastConversationEvent(eventType events.Type, conversationID uuid.UUID) {
	userID := c.userID
	convID := conversationID
	c.hub.Broadcast(events.Event{
		Type:           eventType,
		ConversationID: &convID,
		UserID:         &userID,
		Timestamp:      time.Now(),
	})
}

// sendError emits a directed ERROR event visible only to this user.
func (c *Client) sendError(conversationID uuid.UUID, err error) {
	userID := c.userID
	convID := conversationID
	c.hub.Broadcast(events.Event{
		Type:           events.TypeError,
		ConversationID: &convID,
		Error:          err.Error(),
		Timestamp:      time.Now(),
		TargetUserID:   &userID,
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
