package chat

import (
	"slices"
	"sync"
)

// Conn is a live connection that can take a pushed payload. Send must not
// block; implementations drop or disconnect instead.
type Conn interface {
	Send(payload []byte) error
}

// Presence maps each online user to the one connection used for push
// delivery. It is process-local; a multi-instance deployment needs a shared
// registry in front of it.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[Conn]string
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]Conn),
		byConn: make(map[Conn]string),
	}
}

// Register makes conn the delivery target for userID. A previous connection
// for the same user is dropped from routing but left open.
func (p *Presence) Register(userID string, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.byUser[userID]; ok && prev != conn {
		delete(p.byConn, prev)
	}
	if prevUser, ok := p.byConn[conn]; ok && prevUser != userID {
		delete(p.byUser, prevUser)
	}
	p.byUser[userID] = conn
	p.byConn[conn] = userID
}

// Unregister removes conn if it is still the current target of its user.
// It reports whether an entry was removed.
func (p *Presence) Unregister(conn Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[conn]
	if !ok {
		return false
	}
	delete(p.byConn, conn)
	delete(p.byUser, userID)
	return true
}

func (p *Presence) Lookup(userID string) (Conn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conn, ok := p.byUser[userID]
	return conn, ok
}

// Online returns the sorted IDs of users with a registered connection.
func (p *Presence) Online() []string {
	p.mu.RLock()
	users := make([]string, 0, len(p.byUser))
	for id := range p.byUser {
		users = append(users, id)
	}
	p.mu.RUnlock()

	slices.Sort(users)
	return users
}

func (p *Presence) conns() []Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Conn, 0, len(p.byUser))
	for _, c := range p.byUser {
		out = append(out, c)
	}
	return out
}
