package handler

import (
	"context"
	"fmt"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
	"github.com/extrachat/server/internal/registry"
)

// HandleInvite invites an online character to a linkshell. The invitee
// must be online because the inviter encrypts the shared secret
// against the invitee's current public key; an offline character has
// no key on file. Characters who disabled invites look offline to
// inviters.
func HandleInvite(ctx context.Context, sess *net.Session, number uint32, req *protocol.InviteRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	rank, ok, err := memberRank(ctx, deps, req.Channel, user.LodestoneID)
	if err != nil {
		return err
	}
	if !ok {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not in channel"))
	}
	if rank < protocol.RankModerator {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not enough permissions to invite"))
	}

	targetID, online := deps.Registry.IDFor(registry.IDKey{Name: req.Name, World: req.World})
	if !online {
		return sess.Reply(number, protocol.NewError(&req.Channel, "user not online"))
	}
	if target := deps.Registry.Get(targetID); target != nil && !target.AllowInvites() {
		// Indistinguishable from being offline on purpose.
		return sess.Reply(number, protocol.NewError(&req.Channel, "user not online"))
	}
	if targetID == user.LodestoneID {
		return sess.Reply(number, protocol.NewError(&req.Channel, "cannot invite self"))
	}

	if member, err := deps.Channels.IsMember(ctx, req.Channel.Simple(), targetID); err != nil {
		return err
	} else if member {
		return sess.Reply(number, protocol.NewError(&req.Channel, "already in channel"))
	}
	if invited, err := deps.Channels.IsInvited(ctx, req.Channel.Simple(), targetID); err != nil {
		return err
	} else if invited {
		return sess.Reply(number, protocol.NewError(&req.Channel, "already invited"))
	}

	change := &protocol.MemberChangeResponse{
		Channel: req.Channel,
		Name:    req.Name,
		World:   req.World,
		Kind: protocol.MemberChangeKind{
			Type:       protocol.MemberChangeInvite,
			Actor:      user.Name,
			ActorWorld: user.WorldID,
		},
	}
	if err := sendToAll(ctx, deps, req.Channel, 0, change); err != nil {
		return err
	}

	if err := deps.Channels.AddInvite(ctx, req.Channel.Simple(), targetID, user.LodestoneID); err != nil {
		return err
	}

	target := deps.Registry.Get(targetID)
	if target == nil {
		// Disconnected mid-invite. The invite row stays; they see it on
		// next login.
		return sess.Reply(number, protocol.NewError(&req.Channel, "user not online"))
	}

	full, err := channelGet(ctx, deps, req.Channel)
	if err != nil {
		return err
	}
	if full == nil {
		return fmt.Errorf("no such channel: %s", req.Channel)
	}

	target.TrySend(&protocol.ResponseContainer{
		Number: 0,
		Kind: &protocol.InvitedResponse{
			Channel:         *full,
			Name:            user.Name,
			World:           user.WorldID,
			PK:              sess.PK(),
			EncryptedSecret: req.EncryptedSecret,
		},
	})

	return sess.Reply(number, &protocol.InviteResponse{
		Channel: req.Channel,
		Name:    req.Name,
		World:   req.World,
	})
}
