package websocket

import (
	"sort"
	"sync"
)

// Registry maps each online user to their current connection. A user has at
// most one entry; registering again replaces it. The reverse index lets a
// closing connection find its user without a scan, and a connection that
// was already replaced does not evict its successor.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	byConn map[string]string // conn id -> user id
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[string]string),
	}
}

// Register makes c the user's connection and returns the one it replaced
func (r *Registry) Register(userID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.byUser[userID]
	if prev != nil {
		delete(r.byConn, prev.ID)
	}
	r.byUser[userID] = c
	r.byConn[c.ID] = userID
	return prev
}

// Remove drops the connection. It reports whether the online set changed,
// which is false when c had already been replaced by a newer connection.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c.ID]
	if !ok {
		return false
	}
	delete(r.byConn, c.ID)
	if cur := r.byUser[userID]; cur != nil && cur.ID == c.ID {
		delete(r.byUser, userID)
		return true
	}
	return false
}

// Lookup returns the user's current connection
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Snapshot returns the online user ids, sorted
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of online users
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
