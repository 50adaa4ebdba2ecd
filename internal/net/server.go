package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxFrameSize caps inbound websocket frames.
const maxFrameSize = 1 << 20

// Server upgrades inbound HTTP connections to websockets and runs one
// Session per connection.
type Server struct {
	handler  Handler
	listener net.Listener
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	ctx      context.Context
	log      *zap.Logger
}

func NewServer(bindAddr string, h Handler, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", bindAddr, err)
	}
	return &Server{
		handler:  h,
		listener: ln,
		upgrader: websocket.Upgrader{
			// Game clients connect from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.ctx = ctx
	srv := &http.Server{Handler: s}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP upgrades the request regardless of path and runs the
// session on the current goroutine.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("client error", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	id := s.nextID.Add(1)
	s.log.Debug("client connected", zap.Uint64("session", id), zap.String("addr", conn.RemoteAddr().String()))

	sess := NewSession(conn, id, s.log)
	sess.Run(s.ctx, s.handler)
}
