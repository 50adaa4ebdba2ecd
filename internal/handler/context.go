package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/extrachat/server/internal/data"
	"github.com/extrachat/server/internal/lodestone"
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/persist"
	"github.com/extrachat/server/internal/protocol"
	"github.com/extrachat/server/internal/registry"
	"github.com/extrachat/server/internal/updater"
)

// Deps holds shared dependencies injected into all request handlers.
type Deps struct {
	Users         *persist.UserRepo
	Channels      *persist.ChannelRepo
	Verifications *persist.VerificationRepo
	Registry      *registry.Registry
	Worlds        *data.WorldTable
	Lodestone     *lodestone.Client
	Updater       *updater.Updater
	Log           *zap.Logger
}

// Mux routes decoded requests to their handlers. Ping, Version,
// Register and Authenticate are open to any session; everything else
// requires a login first.
type Mux struct {
	deps *Deps
}

func NewMux(deps *Deps) *Mux {
	return &Mux{deps: deps}
}

func (m *Mux) Handle(ctx context.Context, sess *net.Session, number uint32, kind protocol.RequestKind) error {
	deps := m.deps

	switch req := kind.(type) {
	case *protocol.PingRequest:
		return HandlePing(sess, number)
	case *protocol.VersionRequest:
		return HandleVersion(sess, number, req)
	case *protocol.RegisterRequest:
		return HandleRegister(ctx, sess, number, req, deps)
	case *protocol.AuthenticateRequest:
		return HandleAuthenticate(ctx, sess, number, req, deps)
	}

	if !sess.LoggedIn() {
		return sess.Reply(number, protocol.NewError(nil, "not logged in"))
	}

	switch req := kind.(type) {
	case *protocol.CreateRequest:
		return HandleCreate(ctx, sess, number, req, deps)
	case *protocol.DisbandRequest:
		return HandleDisband(ctx, sess, number, req, deps)
	case *protocol.InviteRequest:
		return HandleInvite(ctx, sess, number, req, deps)
	case *protocol.JoinRequest:
		return HandleJoin(ctx, sess, number, req, deps)
	case *protocol.LeaveRequest:
		return HandleLeave(ctx, sess, number, req, deps)
	case *protocol.KickRequest:
		return HandleKick(ctx, sess, number, req, deps)
	case *protocol.MessageRequest:
		return HandleMessage(ctx, sess, number, req, deps)
	case *protocol.ListRequest:
		return HandleList(ctx, sess, number, req, deps)
	case *protocol.PromoteRequest:
		return HandlePromote(ctx, sess, number, req, deps)
	case *protocol.UpdateRequest:
		return HandleUpdate(ctx, sess, number, req, deps)
	case *protocol.PublicKeyRequest:
		return HandlePublicKey(sess, number, req, deps)
	case *protocol.SecretsRequest:
		return HandleSecrets(ctx, sess, number, req, deps)
	case *protocol.SendSecretsRequest:
		return HandleSendSecrets(ctx, sess, number, req, deps)
	case *protocol.AllowInvitesRequest:
		return HandleAllowInvites(sess, number, req)
	case *protocol.DeleteAccountRequest:
		return HandleDeleteAccount(ctx, sess, number, req, deps)
	default:
		return sess.Reply(number, protocol.NewError(nil, "not yet implemented"))
	}
}

// Closed drops the session from the registry once its loop has ended.
func (m *Mux) Closed(sess *net.Session) {
	m.deps.Registry.Remove(sess)
}
