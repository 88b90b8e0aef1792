package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutorchat/internal/events"
	"tutorchat/internal/services"
)

// Authorizer answers the active-participant predicate for conversation-scoped
// frames. Registry membership is only a cache of this answer, so every frame
// that would write to the registry or fan out a conversation event goes
// through here first.
type Authorizer interface {
	CanViewConversation(ctx context.Context, userID, conversationID uuid.UUID) error
}

// Hub owns the broadcast stream: every chat event flows through one channel
// and each connected client filters it against the presence registry.
// Producers never block on slow consumers; both the stream and the per-client
// buffers drop with a warning when full.
type Hub struct {
	registry      *Registry
	conversations *services.ConversationService
	messages      *services.MessageService
	access        Authorizer
	publisher     events.Publisher

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan events.Event

	rateLimiter *ConnectionRateLimiter
	logger      *WebSocketLogger
	stopChan    chan struct{}
	doneChan    chan struct{}
}

func NewHub(
	registry *Registry,
	conversations *services.ConversationService,
	messages *services.MessageService,
	access Authorizer,
	publisher events.Publisher,
) *Hub {
	return &Hub{
		registry:      registry,
		conversations: conversations,
		messages:      messages,
		access:        access,
		publisher:     publisher,
		clients:       make(map[string]*Client),
		register:      make(chan *Client, 256),
		unregister:    make(chan *Client, 256),
		broadcast:     make(chan events.Event, 256),
		rateLimiter:   NewConnectionRateLimiter(),
		logger:        NewWebSocketLogger(),
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Run processes registrations and the broadcast stream until Stop.
func (h *Hub) Run() {
	defer close(h.doneChan)
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case event := <-h.broadcast:
			h.handleBroadcast(event)

		case <-h.stopChan:
			for _, client := range h.clients {
				h.dropClient(client)
			}
			h.clients = make(map[string]*Client)
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast pushes an event into the shared stream and mirrors it to other
// instances. Never blocks: a full stream drops the event with a warning.
func (h *Hub) Broadcast(event events.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if h.publisher != nil {
		if err := h.publisher.Publish(context.Background(), event); err != nil {
			h.logger.logger.Error("event publish failed", zap.Error(err))
		}
	}
	h.enqueue(event)
}

// InjectRemote feeds an event received from another instance into the local
// stream without republishing it.
func (h *Hub) InjectRemote(event events.Event) {
	h.enqueue(event)
}

func (h *Hub) enqueue(event events.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.logger.Warn("broadcast stream full, event dropped", zap.String("type", string(event.Type)))
	}
}

func (h *Hub) handleRegister(client *Client) {
	if !h.rateLimiter.AllowConnection(client.userID) {
		h.logger.Warn("connection rate limit exceeded", client.userID, client.clientID)
		client.conn.Close()
		return
	}

	h.clients[client.clientID] = client
	first := h.registry.AddConnection(client.userID, client.clientID)

	if first && h.conversations != nil {
		// membership load runs off the hub loop; until it lands the client
		// simply matches no conversations
		go func(userID uuid.UUID) {
			ids, err := h.conversations.ActiveConversationIDs(context.Background(), userID)
			if err != nil {
				h.logger.Error("membership load failed", userID, "", err)
				return
			}
			h.registry.SetMemberships(userID, ids)
		}(client.userID)
	}

	h.logger.Info("client connected", client.userID, client.clientID)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients[client.clientID]; !ok {
		return
	}
	delete(h.clients, client.clientID)

	last, conversations := h.registry.RemoveConnection(client.userID, client.clientID)
	h.dropClient(client)
	h.logger.Info("client disconnected", client.userID, client.clientID)

	if last {
		userID := client.userID
		for _, convID := range conversations {
			id := convID
			h.Broadcast(events.Event{
				Type:           events.TypeUserOffline,
				ConversationID: &id,
				UserID:         &userID,
				Timestamp:      time.Now(),
			})
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	client.closeOnce.Do(func() {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
	})
}

func (h *Hub) handleBroadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.logger.Error("event marshal failed", zap.Error(err))
		return
	}

	for _, client := range h.clients {
		if !h.matches(event, client) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client send buffer full", client.userID, client.clientID)
		}
	}
}

// matches applies the per-connection filter: directed events reach only the
// addressed user's connections, conversation events reach cached members.
func (h *Hub) matches(event events.Event, client *Client) bool {
	if event.TargetUserID != nil {
		return *event.TargetUserID == client.userID
	}
	if event.ConversationID != nil {
		return h.registry.IsMember(client.userID, *event.ConversationID)
	}
	return false
}

// Stop shuts the hub down and waits for the run loop to drain.
func (h *Hub) Stop() {
	close(h.stopChan)
	<-h.doneChan
	h.rateLimiter.Stop()
}

// ConnectionRateLimiter bounds connection attempts per user over a sliding
// one minute window. A background sweep evicts users whose whole window has
// aged out, so the map does not accumulate entries for every user ever seen.
type ConnectionRateLimiter struct {
	connectionsPerUser map[uuid.UUID][]time.Time
	mu                 sync.Mutex
	stopChan           chan struct{}
	stopOnce           sync.Once
}

const (
	maxConnectionsPerMinute = 10
	rateLimiterSweepPeriod  = time.Minute
)

func NewConnectionRateLimiter() *ConnectionRateLimiter {
	l := &ConnectionRateLimiter{
		connectionsPerUser: make(map[uuid.UUID][]time.Time),
		stopChan:           make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *ConnectionRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rateLimiterSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.removeStale()
		case <-l.stopChan:
			return
		}
	}
}

func (l *ConnectionRateLimiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := time.Now().Add(-1 * time.Minute)
	for userID, attempts := range l.connectionsPerUser {
		valid := attempts[:0]
		for _, t := range attempts {
			if t.After(windowStart) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(l.connectionsPerUser, userID)
		} else {
			l.connectionsPerUser[userID] = valid
		}
	}
}

func (l *ConnectionRateLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

func (l *ConnectionRateLimiter) AllowConnection(userID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-1 * time.Minute)

	valid := l.connectionsPerUser[userID][:0]
	for _, t := range l.connectionsPerUser[userID] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	if len(valid) >= maxConnectionsPerMinute {
		l.connectionsPerUser[userID] = valid
		return false
	}
	l.connectionsPerUser[userID] = append(valid, now)
	return true
}
