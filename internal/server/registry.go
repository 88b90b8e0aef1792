package server

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const registryShardCount = 32

// Registry is the process-local presence cache: which users are connected and
// which conversations each should receive events for. Entries are rebuilt per
// connection and purged on last disconnect; the persistent participant rows
// remain the source of truth. State is sharded by key so unrelated users'
// connect/disconnect traffic never contends on one lock.
type Registry struct {
	users         [registryShardCount]*userShard
	conversations [registryShardCount]*conversationShard
}

type userShard struct {
	mu sync.RWMutex
	// userID -> live connection ids
	connections map[uuid.UUID]map[string]struct{}
	// userID -> conversation memberships
	memberships map[uuid.UUID]map[uuid.UUID]struct{}
}

type conversationShard struct {
	mu sync.RWMutex
	// conversationID -> member user ids
	members map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := 0; i < registryShardCount; i++ {
		r.users[i] = &userShard{
			connections: make(map[uuid.UUID]map[string]struct{}),
			memberships: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		}
		r.conversations[i] = &conversationShard{
			members: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		}
	}
	return r
}

func shardIndex(id uuid.UUID) int {
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % registryShardCount)
}

// AddConnection registers a connection under userID and reports whether it is
// the user's first live connection.
func (r *Registry) AddConnection(userID uuid.UUID, connID string) (first bool) {
	shard := r.users[shardIndex(userID)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	conns, ok := shard.connections[userID]
	if !ok {
		conns = make(map[string]struct{})
		shard.connections[userID] = conns
	}
	conns[connID] = struct{}{}
	return !ok
}

// RemoveConnection drops a connection. When it was the user's last one, the
// membership caches are purged from both directions and the conversations
// the user belonged to are returned.
func (r *Registry) RemoveConnection(userID uuid.UUID, connID string) (last bool, conversations []uuid.UUID) {
	shard := r.users[shardIndex(userID)]
	shard.mu.Lock()
	conns, ok := shard.connections[userID]
	if ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(shard.connections, userID)
			for convID := range shard.memberships[userID] {
				conversations = append(conversations, convID)
			}
			delete(shard.memberships, userID)
			last = true
		}
	}
	shard.mu.Unlock()

	for _, convID := range conversations {
		r.removeMember(convID, userID)
	}
	return last, conversations
}

// SetMemberships replaces the user's cached conversation set, populating both
// directions. Called after the membership load completes on first connect.
func (r *Registry) SetMemberships(userID uuid.UUID, conversationIDs []uuid.UUID) {
	shard := r.users[shardIndex(userID)]
	shard.mu.Lock()
	// no live connection anymore: the load raced a disconnect, drop the result
	if _, ok := shard.connections[userID]; !ok {
		shard.mu.Unlock()
		return
	}
	old := shard.memberships[userID]
	set := make(map[uuid.UUID]struct{}, len(conversationIDs))
	for _, id := range conversationIDs {
		set[id] = struct{}{}
	}
	shard.memberships[userID] = set
	shard.mu.Unlock()

	for convID := range old {
		if _, keep := set[convID]; !keep {
			r.removeMember(convID, userID)
		}
	}
	for _, convID := range conversationIDs {
		r.addMember(convID, userID)
	}

	// A disconnect purge can land between the liveness check above and the
	// member writes; its removeMember calls then see nothing to remove. Detect
	// that and undo, so an offline user never lingers in a member set.
	shard.mu.Lock()
	_, live := shard.connections[userID]
	if !live {
		delete(shard.memberships, userID)
	}
	shard.mu.Unlock()
	if !live {
		for _, convID := range conversationIDs {
			r.removeMember(convID, userID)
		}
	}
}

// JoinConversation records a live membership in both directions.
func (r *Registry) JoinConversation(userID, conversationID uuid.UUID) {
	shard := r.users[shardIndex(userID)]
	shard.mu.Lock()
	set, ok := shard.memberships[userID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		shard.memberships[userID] = set
	}
	set[conversationID] = struct{}{}
	shard.mu.Unlock()

	r.addMember(conversationID, userID)
}

// IsMember is the O(1) membership test the gateway filters broadcasts with.
func (r *Registry) IsMember(userID, conversationID uuid.UUID) bool {
	shard := r.users[shardIndex(userID)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	_, ok := shard.memberships[userID][conversationID]
	return ok
}

// ConversationsOf returns the user's cached conversation ids.
func (r *Registry) ConversationsOf(userID uuid.UUID) []uuid.UUID {
	shard := r.users[shardIndex(userID)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(shard.memberships[userID]))
	for convID := range shard.memberships[userID] {
		out = append(out, convID)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	shard := r.users[shardIndex(userID)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return len(shard.connections[userID]) > 0
}

func (r *Registry) addMember(conversationID, userID uuid.UUID) {
	shard := r.conversations[shardIndex(conversationID)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	members, ok := shard.members[conversationID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		shard.members[conversationID] = members
	}
	members[userID] = struct{}{}
}

func (r *Registry) removeMember(conversationID, userID uuid.UUID) {
	shard := r.conversations[shardIndex(conversationID)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	members, ok := shard.members[conversationID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(shard.members, conversationID)
	}
}

// Members returns the cached member set of a conversation.
func (r *Registry) Members(conversationID uuid.UUID) []uuid.UUID {
	shard := r.conversations[shardIndex(conversationID)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(shard.members[conversationID]))
	for userID := range shard.members[conversationID] {
		out = append(out, userID)
	}
	return out
}
