package net

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/extrachat/server/internal/protocol"
)

// writeTimeout bounds a single websocket write.
const writeTimeout = 5 * time.Second

// outQueueSize is the per-session buffer for envelopes pushed by other
// sessions. Pushers never block on it; see TrySend.
const outQueueSize = 10

// ErrCloseSession tells the session loop to disconnect without logging
// a handler error. Used for protocol-level rejections such as a version
// mismatch.
var ErrCloseSession = errors.New("close session")

// Handler dispatches decoded requests for a session. Closed is called
// exactly once, after the session loop exits.
type Handler interface {
	Handle(ctx context.Context, sess *Session, number uint32, kind protocol.RequestKind) error
	Closed(sess *Session)
}

// User is the authenticated identity bound to a session.
type User struct {
	LodestoneID uint64
	Name        string
	World       string
	WorldID     uint16
}

// Session is a single websocket client. The Run goroutine owns all
// writes to the connection: direct replies happen inline during
// dispatch, and envelopes from other sessions arrive through the out
// queue.
type Session struct {
	ID   uint64
	conn *websocket.Conn

	out chan *protocol.ResponseContainer

	mu           sync.RWMutex
	user         *User
	pk           []byte
	allowInvites bool

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	closeCh      chan struct{}
	closeOnce    sync.Once

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id uint64, log *zap.Logger) *Session {
	return &Session{
		ID:         id,
		conn:       conn,
		out:        make(chan *protocol.ResponseContainer, outQueueSize),
		pk:         []byte{},
		shutdownCh: make(chan struct{}),
		closeCh:    make(chan struct{}),
		log:        log.With(zap.Uint64("session", id)),
	}
}

// Run drives the session until the client disconnects, a handler
// fails, or a duplicate login shuts this one down.
func (s *Session) Run(ctx context.Context, h Handler) {
	inbound := make(chan []byte)
	go s.readFrames(inbound)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-s.shutdownCh:
			s.log.Debug("break due to new login")
			break loop
		case env := <-s.out:
			if err := s.write(env); err != nil {
				s.log.Error("error in client loop", zap.Error(err))
				break loop
			}
		case data, ok := <-inbound:
			if !ok {
				s.log.Debug("break")
				break loop
			}
			req, err := protocol.DecodeRequest(data)
			if err != nil {
				s.log.Error("error in client loop", zap.Error(err))
				break loop
			}
			if err := h.Handle(ctx, s, req.Number, req.Kind); err != nil {
				if !errors.Is(err, ErrCloseSession) {
					s.log.Error("error in client loop", zap.Error(err))
				}
				break loop
			}
		}
	}

	s.log.Debug("ending client thread")
	h.Closed(s)
	s.Close()
	s.log.Debug("client thread ended")
}

// readFrames pumps binary frames into inbound until the connection
// errors out. Other frame types are ignored.
func (s *Session) readFrames(inbound chan<- []byte) {
	defer close(inbound)
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		select {
		case inbound <- data:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) write(env *protocol.ResponseContainer) error {
	data, err := protocol.EncodeResponse(env)
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Reply writes an envelope straight to the connection. Only the session
// goroutine may call it; cross-session traffic goes through TrySend.
func (s *Session) Reply(number uint32, kind protocol.ResponseKind) error {
	return s.write(&protocol.ResponseContainer{Number: number, Kind: kind})
}

// TrySend queues an envelope without blocking. A full queue or a closed
// session drops the envelope and reports false.
func (s *Session) TrySend(env *protocol.ResponseContainer) bool {
	select {
	case <-s.closeCh:
		return false
	default:
	}
	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// Shutdown asks the run loop to exit. Fired at the old connection when
// the same account logs in again.
func (s *Session) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Close tears down the connection. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.conn.Close()
	})
}

// User returns a copy of the authenticated identity, or nil before
// authentication.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LoggedIn reports whether the session has authenticated.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// SetIdentity binds an authenticated user to the session.
func (s *Session) SetIdentity(u User, pk []byte, allowInvites bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	s.pk = pk
	s.allowInvites = allowInvites
}

// ClearIdentity detaches the user, leaving the session logged out.
// Applied to the losing side of a duplicate login.
func (s *Session) ClearIdentity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.pk = []byte{}
	s.allowInvites = false
}

// SetName renames the session's character after a Lodestone refresh.
func (s *Session) SetName(name, world string, worldID uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	s.user.Name = name
	s.user.World = world
	s.user.WorldID = worldID
}

// PK returns the public key announced at login.
func (s *Session) PK() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pk
}

func (s *Session) AllowInvites() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowInvites
}

func (s *Session) SetAllowInvites(allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowInvites = allowed
}
