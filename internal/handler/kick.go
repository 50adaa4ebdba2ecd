package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleKick removes another character from a linkshell, or cancels
// their pending invite. Moderators and up, and only downwards: a
// moderator cannot kick another moderator. The notice fans out before
// the row is deleted so the target hears about it too.
func HandleKick(ctx context.Context, sess *net.Session, number uint32, req *protocol.KickRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	rank, ok, err := memberRank(ctx, deps, req.Channel, user.LodestoneID)
	if err != nil {
		return err
	}
	if !ok || rank < protocol.RankModerator {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not in channel/not enough permissions"))
	}

	targetID, found, err := resolveID(ctx, deps, req.Name, req.World)
	if err != nil {
		return err
	}
	if !found {
		return sess.Reply(number, protocol.NewError(&req.Channel, "user not found"))
	}

	targetRank, isMember, err := memberRank(ctx, deps, req.Channel, targetID)
	if err != nil {
		return err
	}
	if isMember && targetRank >= rank {
		return sess.Reply(number, protocol.NewError(&req.Channel, "cannot kick someone of equal or higher rank"))
	}
	invited := false
	if !isMember {
		invited, err = deps.Channels.IsInvited(ctx, req.Channel.Simple(), targetID)
		if err != nil {
			return err
		}
		if !invited {
			return sess.Reply(number, protocol.NewError(&req.Channel, "user not in channel"))
		}
	}

	changeType := protocol.MemberChangeKick
	if invited {
		changeType = protocol.MemberChangeInviteCancel
	}
	change := &protocol.MemberChangeResponse{
		Channel: req.Channel,
		Name:    req.Name,
		World:   req.World,
		Kind: protocol.MemberChangeKind{
			Type:       changeType,
			Actor:      user.Name,
			ActorWorld: user.WorldID,
		},
	}
	if err := sendToAll(ctx, deps, req.Channel, 0, change); err != nil {
		return err
	}

	if invited {
		if _, err := deps.Channels.DeleteInvite(ctx, req.Channel.Simple(), targetID); err != nil {
			return err
		}
	} else {
		if err := deps.Channels.RemoveMember(ctx, req.Channel.Simple(), targetID); err != nil {
			return err
		}
	}

	return sess.Reply(number, &protocol.KickResponse{
		Channel: req.Channel,
		Name:    req.Name,
		World:   req.World,
	})
}
