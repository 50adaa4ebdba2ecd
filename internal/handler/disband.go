package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleDisband deletes a linkshell outright. Admin only. Members are
// notified before the rows go away, since afterwards there is no
// roster left to fan out to.
func HandleDisband(ctx context.Context, sess *net.Session, number uint32, req *protocol.DisbandRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	rank, ok, err := memberRank(ctx, deps, req.Channel, user.LodestoneID)
	if err != nil {
		return err
	}
	if !ok || rank != protocol.RankAdmin {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not in channel/not enough permissions"))
	}

	if err := sendToAll(ctx, deps, req.Channel, 0, &protocol.DisbandResponse{Channel: req.Channel}); err != nil {
		return err
	}
	if err := deps.Channels.Delete(ctx, req.Channel.Simple()); err != nil {
		return err
	}

	return sess.Reply(number, &protocol.DisbandResponse{Channel: req.Channel})
}
