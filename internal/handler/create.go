package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleCreate makes a new linkshell with the caller as its admin. The
// name arrives already encrypted; the server never sees plaintext.
func HandleCreate(ctx context.Context, sess *net.Session, number uint32, req *protocol.CreateRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	id := protocol.NewUUID()
	if err := deps.Channels.Create(ctx, id.Simple(), req.Name); err != nil {
		return err
	}
	if err := deps.Channels.AddMember(ctx, id.Simple(), user.LodestoneID, uint8(protocol.RankAdmin)); err != nil {
		return err
	}

	ch, err := channelGet(ctx, deps, id)
	if err != nil {
		return err
	}
	if ch == nil {
		return sess.Reply(number, protocol.NewError(nil, "could not get newly-created channel"))
	}
	return sess.Reply(number, &protocol.CreateResponse{Channel: *ch})
}
