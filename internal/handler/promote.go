package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandlePromote changes another member's rank. Admin only. Promoting
// someone to admin demotes the caller to moderator, since a linkshell
// has exactly one admin; both changes fan out, the caller's first.
func HandlePromote(ctx context.Context, sess *net.Session, number uint32, req *protocol.PromoteRequest, deps *Deps) error {
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
	if req.Rank == protocol.RankInvited {
		return sess.Reply(number, protocol.NewError(&req.Channel, "cannot change rank to invited"))
	}

	targetID, found, err := resolveID(ctx, deps, req.Name, req.World)
	if err != nil {
		return err
	}
	if !found {
		return sess.Reply(number, protocol.NewError(&req.Channel, "user not found"))
	}
	if targetID == user.LodestoneID {
		return sess.Reply(number, protocol.NewError(&req.Channel, "cannot change own rank"))
	}

	targetRank, isMember, err := memberRank(ctx, deps, req.Channel, targetID)
	if err != nil {
		return err
	}
	if isMember && targetRank >= rank {
		return sess.Reply(number, protocol.NewError(&req.Channel, "cannot change rank of someone of equal or higher rank"))
	}
	if !isMember {
		return sess.Reply(number, protocol.NewError(&req.Channel, "user not in channel"))
	}

	if err := deps.Channels.SetRank(ctx, req.Channel.Simple(), targetID, uint8(req.Rank)); err != nil {
		return err
	}
	if req.Rank == protocol.RankAdmin {
		if err := deps.Channels.SetRank(ctx, req.Channel.Simple(), user.LodestoneID, uint8(protocol.RankModerator)); err != nil {
			return err
		}
		change := &protocol.MemberChangeResponse{
			Channel: req.Channel,
			Name:    user.Name,
			World:   user.WorldID,
			Kind: protocol.MemberChangeKind{
				Type: protocol.MemberChangePromote,
				Rank: protocol.RankModerator,
			},
		}
		if err := sendToAll(ctx, deps, req.Channel, 0, change); err != nil {
			return err
		}
	}

	change := &protocol.MemberChangeResponse{
		Channel: req.Channel,
		Name:    req.Name,
		World:   req.World,
		Kind: protocol.MemberChangeKind{
			Type: protocol.MemberChangePromote,
			Rank: req.Rank,
		},
	}
	if err := sendToAll(ctx, deps, req.Channel, 0, change); err != nil {
		return err
	}

	return sess.Reply(number, &protocol.PromoteResponse{
		Channel: req.Channel,
		Name:    req.Name,
		World:   req.World,
		Rank:    req.Rank,
	})
}
