package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleUpdate changes channel metadata. Admin only. The only field so
// far is the encrypted name.
func HandleUpdate(ctx context.Context, sess *net.Session, number uint32, req *protocol.UpdateRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	rank, ok, err := memberRank(ctx, deps, req.Channel, user.LodestoneID)
	if err != nil {
		return err
	}
	if !ok || rank != protocol.RankAdmin {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not in that channel"))
	}

	if err := deps.Channels.Rename(ctx, req.Channel.Simple(), req.Kind.Name); err != nil {
		return err
	}

	updated := &protocol.UpdatedResponse{Channel: req.Channel, Kind: req.Kind}
	if err := sendToAll(ctx, deps, req.Channel, 0, updated); err != nil {
		return err
	}

	return sess.Reply(number, &protocol.UpdateResponse{Channel: req.Channel})
}
