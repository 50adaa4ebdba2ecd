package net

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/extrachat/server/internal/protocol"
)

// recordingHandler replies to pings and records lifecycle events.
type recordingHandler struct {
	sessions chan *Session
	closed   chan *Session
	handle   func(sess *Session, number uint32, kind protocol.RequestKind) error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		sessions: make(chan *Session, 1),
		closed:   make(chan *Session, 1),
	}
}

func (h *recordingHandler) Handle(_ context.Context, sess *Session, number uint32, kind protocol.RequestKind) error {
	select {
	case h.sessions <- sess:
	default:
	}
	if h.handle != nil {
		return h.handle(sess, number, kind)
	}
	if _, ok := kind.(*protocol.PingRequest); ok {
		return sess.Reply(number, &protocol.PingResponse{})
	}
	return nil
}

func (h *recordingHandler) Closed(sess *Session) {
	h.closed <- sess
}

func startServer(t *testing.T, h Handler) string {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", h, zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx)
	return "ws://" + srv.Addr().String() + "/"
}

func dialServer(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeRequest(t *testing.T, conn *websocket.Conn, number uint32, kind protocol.RequestKind) {
	t.Helper()
	data, err := protocol.EncodeRequest(&protocol.RequestContainer{Number: number, Kind: kind})
	require.NoError(t, err)
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))
}

func readResponse(t *testing.T, conn *websocket.Conn) *protocol.ResponseContainer {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(4*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	env, err := protocol.DecodeResponse(data)
	require.NoError(t, err)
	return env
}

func TestSessionReply(t *testing.T) {
	h := newRecordingHandler()
	url := startServer(t, h)
	conn := dialServer(t, url)

	writeRequest(t, conn, 7, &protocol.PingRequest{})
	env := readResponse(t, conn)
	require.Equal(t, uint32(7), env.Number)
	require.IsType(t, &protocol.PingResponse{}, env.Kind)
}

func TestSessionClosedOnDisconnect(t *testing.T) {
	h := newRecordingHandler()
	url := startServer(t, h)
	conn := dialServer(t, url)

	writeRequest(t, conn, 1, &protocol.PingRequest{})
	readResponse(t, conn)
	conn.Close()

	select {
	case <-h.closed:
	case <-time.After(4 * time.Second):
		t.Fatal("handler was not told about the closed session")
	}
}

func TestSessionShutdownDisconnectsClient(t *testing.T) {
	h := newRecordingHandler()
	url := startServer(t, h)
	conn := dialServer(t, url)

	writeRequest(t, conn, 1, &protocol.PingRequest{})
	readResponse(t, conn)

	sess := <-h.sessions
	sess.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(4*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	select {
	case <-h.closed:
	case <-time.After(4 * time.Second):
		t.Fatal("handler was not told about the closed session")
	}
}

func TestHandlerErrorEndsSession(t *testing.T) {
	h := newRecordingHandler()
	h.handle = func(*Session, uint32, protocol.RequestKind) error {
		return ErrCloseSession
	}
	url := startServer(t, h)
	conn := dialServer(t, url)

	writeRequest(t, conn, 1, &protocol.VersionRequest{Version: 99})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(4*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	select {
	case <-h.closed:
	case <-time.After(4 * time.Second):
		t.Fatal("handler was not told about the closed session")
	}
}

func TestTrySendQueued(t *testing.T) {
	h := newRecordingHandler()
	url := startServer(t, h)
	conn := dialServer(t, url)

	writeRequest(t, conn, 1, &protocol.PingRequest{})
	readResponse(t, conn)

	sess := <-h.sessions
	require.True(t, sess.TrySend(&protocol.ResponseContainer{
		Number: 0,
		Kind:   &protocol.AnnounceResponse{Announcement: "maintenance soon"},
	}))

	env := readResponse(t, conn)
	require.Equal(t, uint32(0), env.Number)
	ann, ok := env.Kind.(*protocol.AnnounceResponse)
	require.True(t, ok)
	require.Equal(t, "maintenance soon", ann.Announcement)
}

func TestTrySendDropsWhenFull(t *testing.T) {
	sess := NewSession(nil, 1, zap.NewNop())
	env := &protocol.ResponseContainer{Number: 0, Kind: &protocol.PingResponse{}}
	for i := 0; i < outQueueSize; i++ {
		require.True(t, sess.TrySend(env))
	}
	require.False(t, sess.TrySend(env))
}

func TestSessionIdentity(t *testing.T) {
	sess := NewSession(nil, 1, zap.NewNop())
	require.False(t, sess.LoggedIn())
	require.Nil(t, sess.User())
	require.Empty(t, sess.PK())

	sess.SetIdentity(User{LodestoneID: 123, Name: "Haurchefant Greystone", World: "Coeurl", WorldID: 37}, []byte{1, 2}, true)
	require.True(t, sess.LoggedIn())
	require.True(t, sess.AllowInvites())
	require.Equal(t, []byte{1, 2}, sess.PK())

	// User returns a copy, not a live pointer.
	u := sess.User()
	require.Equal(t, uint64(123), u.LodestoneID)
	u.Name = "changed"
	require.Equal(t, "Haurchefant Greystone", sess.User().Name)

	sess.SetName("Haurchefant Greystone", "Gilgamesh", 63)
	require.Equal(t, "Gilgamesh", sess.User().World)
	require.Equal(t, uint16(63), sess.User().WorldID)

	sess.SetAllowInvites(false)
	require.False(t, sess.AllowInvites())

	sess.ClearIdentity()
	require.False(t, sess.LoggedIn())
	require.Nil(t, sess.User())
	require.Empty(t, sess.PK())
}
