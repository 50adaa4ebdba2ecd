// Package registry tracks the logged-in sessions of a single server
// process and the transient state the handlers share between them.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// IDKey indexes online characters by name and numeric world id.
type IDKey struct {
	Name  string
	World uint16
}

// SecretsRequestInfo is an outstanding lost-secret request: who asked,
// for which channel, and the request number to echo when the answer
// comes back.
type SecretsRequestInfo struct {
	Requester uint64
	Channel   protocol.UUID
	Number    uint32
}

// Registry maps lodestone ids to live sessions. At most one session
// holds an id at a time; a second login for the same id evicts the
// first. Handles are non-owning: a session removes itself on exit.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*net.Session
	ids     map[IDKey]uint64
	secrets map[protocol.UUID]SecretsRequestInfo

	messagesSent atomic.Uint64
}

func New() *Registry {
	return &Registry{
		clients: make(map[uint64]*net.Session),
		ids:     make(map[IDKey]uint64),
		secrets: make(map[protocol.UUID]SecretsRequestInfo),
	}
}

// Install binds sess to a lodestone id and returns the session that
// previously held it, if any. The caller clears the loser's identity
// and fires its shutdown signal after this returns; no session lock is
// taken while the registry lock is held.
func (r *Registry) Install(id uint64, key IDKey, sess *net.Session) *net.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.clients[id]
	if old == sess {
		old = nil
	}
	r.clients[id] = sess
	r.ids[key] = id
	return old
}

// Remove unbinds sess from the maps, but only if it is still the
// holder of its id. An evicted session calling in after its winner
// installed leaves the winner's entries alone.
func (r *Registry) Remove(sess *net.Session) {
	u := sess.User()
	if u == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[u.LodestoneID] != sess {
		return
	}
	delete(r.clients, u.LodestoneID)

	key := IDKey{Name: u.Name, World: u.WorldID}
	if r.ids[key] == u.LodestoneID {
		delete(r.ids, key)
	}
}

// Get returns the live session for a lodestone id, or nil.
func (r *Registry) Get(id uint64) *net.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[id]
}

// IDFor resolves an online character to its lodestone id.
func (r *Registry) IDFor(key IDKey) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[key]
	return id, ok
}

// Rename rekeys the name index after a Lodestone refresh changed a
// character's name or world. No-op if the user is not online.
func (r *Registry) Rename(id uint64, oldKey, newKey IDKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, online := r.clients[id]; !online {
		return
	}
	if r.ids[oldKey] == id {
		delete(r.ids, oldKey)
	}
	r.ids[newKey] = id
}

// Len reports how many sessions are logged in.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Sessions returns a snapshot of all logged-in sessions.
func (r *Registry) Sessions() []*net.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*net.Session, 0, len(r.clients))
	for _, sess := range r.clients {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Announce queues an announcement on every logged-in session and
// reports how many received it.
func (r *Registry) Announce(msg string) int {
	env := &protocol.ResponseContainer{
		Number: 0,
		Kind:   &protocol.AnnounceResponse{Announcement: msg},
	}
	sent := 0
	for _, sess := range r.Sessions() {
		if sess.TrySend(env) {
			sent++
		}
	}
	return sent
}

// AddSecretsRequest records a pending lost-secret request.
func (r *Registry) AddSecretsRequest(id protocol.UUID, info SecretsRequestInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[id] = info
}

// SecretsRequest looks up a pending lost-secret request. The entry
// stays until RemoveSecretsRequest; a responder that fails validation
// leaves the request open for the others.
func (r *Registry) SecretsRequest(id protocol.UUID) (SecretsRequestInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.secrets[id]
	return info, ok
}

// RemoveSecretsRequest discards a pending lost-secret request.
func (r *Registry) RemoveSecretsRequest(id protocol.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.secrets, id)
}

// AddMessagesSent bumps the lifetime fan-out counter.
func (r *Registry) AddMessagesSent(n uint64) {
	r.messagesSent.Add(n)
}

// MessagesSent reports the lifetime fan-out counter.
func (r *Registry) MessagesSent() uint64 {
	return r.messagesSent.Load()
}
