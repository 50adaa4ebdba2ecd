package handler

import (
	"context"
	"fmt"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleJoin accepts a pending invite. The join notice goes out before
// the membership row flips so the joiner does not see their own
// change.
func HandleJoin(ctx context.Context, sess *net.Session, number uint32, req *protocol.JoinRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	deleted, err := deps.Channels.DeleteInvite(ctx, req.Channel.Simple(), user.LodestoneID)
	if err != nil {
		return err
	}
	if !deleted {
		return sess.Reply(number, protocol.NewError(&req.Channel, "you were not invited to that channel"))
	}

	change := &protocol.MemberChangeResponse{
		Channel: req.Channel,
		Name:    user.Name,
		World:   user.WorldID,
		Kind:    protocol.MemberChangeKind{Type: protocol.MemberChangeJoin},
	}
	if err := sendToAll(ctx, deps, req.Channel, 0, change); err != nil {
		return err
	}

	if err := deps.Channels.AddMember(ctx, req.Channel.Simple(), user.LodestoneID, uint8(protocol.RankMember)); err != nil {
		return err
	}

	full, err := channelGet(ctx, deps, req.Channel)
	if err != nil {
		return err
	}
	if full == nil {
		return fmt.Errorf("no such channel: %s", req.Channel)
	}
	return sess.Reply(number, &protocol.JoinResponse{Channel: *full})
}
