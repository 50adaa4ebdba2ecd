package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleDeleteAccount erases the caller's registration. Requires the
// caller to have left every linkshell first so no channel is orphaned.
// Pending invites and any stale verification row go with the user.
func HandleDeleteAccount(ctx context.Context, sess *net.Session, number uint32, req *protocol.DeleteAccountRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return sess.Reply(number, protocol.NewError(nil, "no Lodestone ID? this is a bug"))
	}

	memberships, err := deps.Channels.MembershipCount(ctx, user.LodestoneID)
	if err != nil {
		return err
	}
	if memberships > 0 {
		return sess.Reply(number, protocol.NewError(nil, "leave all linkshells first"))
	}

	if err := deps.Users.Delete(ctx, user.LodestoneID); err != nil {
		return err
	}
	if err := deps.Verifications.Delete(ctx, user.LodestoneID); err != nil {
		return err
	}

	return sess.Reply(number, &protocol.DeleteAccountResponse{})
}
