package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleLeave removes the caller from a linkshell, or declines a
// pending invite. An admin must hand off the channel first, and the
// last member out deletes it. Unlike joins, the notice goes out after
// the row is gone so the leaver is not on the roster for their own
// departure.
func HandleLeave(ctx context.Context, sess *net.Session, number uint32, req *protocol.LeaveRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	rank, ok, err := memberRank(ctx, deps, req.Channel, user.LodestoneID)
	if err != nil {
		return err
	}
	if !ok {
		invited, err := deps.Channels.IsInvited(ctx, req.Channel.Simple(), user.LodestoneID)
		if err != nil {
			return err
		}
		if !invited {
			return sess.Reply(number, protocol.NewError(&req.Channel, "not in that channel"))
		}
		rank = protocol.RankInvited
	}
	isDecline := rank == protocol.RankInvited

	count, err := deps.Channels.MemberCount(ctx, req.Channel.Simple())
	if err != nil {
		return err
	}
	if count > 1 && rank == protocol.RankAdmin {
		return sess.Reply(number, protocol.LeaveError(req.Channel, "you must promote someone to admin before leaving"))
	}
	if count == 1 && !isDecline {
		if err := deps.Channels.Delete(ctx, req.Channel.Simple()); err != nil {
			return err
		}
		return sess.Reply(number, protocol.LeaveOK(req.Channel))
	}

	changeType := protocol.MemberChangeLeave
	if isDecline {
		changeType = protocol.MemberChangeInviteDecline
		if _, err := deps.Channels.DeleteInvite(ctx, req.Channel.Simple(), user.LodestoneID); err != nil {
			return err
		}
	} else {
		if err := deps.Channels.RemoveMember(ctx, req.Channel.Simple(), user.LodestoneID); err != nil {
			return err
		}
	}

	change := &protocol.MemberChangeResponse{
		Channel: req.Channel,
		Name:    user.Name,
		World:   user.WorldID,
		Kind:    protocol.MemberChangeKind{Type: changeType},
	}
	if err := sendToAll(ctx, deps, req.Channel, 0, change); err != nil {
		return err
	}

	return sess.Reply(number, protocol.LeaveOK(req.Channel))
}
