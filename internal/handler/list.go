package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleList answers the four roster queries: everything at once (full
// channels plus pending invites), the caller's channels in brief, the
// caller's invites in brief, and one channel's member list.
func HandleList(ctx context.Context, sess *net.Session, number uint32, req *protocol.ListRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	switch req.What {
	case protocol.ListAll:
		channels, err := fullChannels(ctx, deps, func() ([]string, error) {
			return deps.Channels.IDsForUser(ctx, user.LodestoneID)
		})
		if err != nil {
			return err
		}
		invites, err := fullChannels(ctx, deps, func() ([]string, error) {
			return deps.Channels.InviteIDsForUser(ctx, user.LodestoneID)
		})
		if err != nil {
			return err
		}
		return sess.Reply(number, &protocol.ListResponse{
			What:     protocol.ListAll,
			Channels: channels,
			Invites:  invites,
		})

	case protocol.ListChannels:
		rows, err := deps.Channels.SimpleForUser(ctx, user.LodestoneID)
		if err != nil {
			return err
		}
		simple := make([]protocol.SimpleChannel, 0, len(rows))
		for _, row := range rows {
			id, err := protocol.ParseSimple(row.ID)
			if err != nil {
				continue
			}
			simple = append(simple, protocol.SimpleChannel{
				ID:   id,
				Name: row.Name,
				Rank: protocol.RankFromU8(row.Rank),
			})
		}
		return sess.Reply(number, &protocol.ListResponse{
			What:   protocol.ListChannels,
			Simple: simple,
		})

	case protocol.ListInvites:
		rows, err := deps.Channels.InvitedForUser(ctx, user.LodestoneID)
		if err != nil {
			return err
		}
		simple := make([]protocol.SimpleChannel, 0, len(rows))
		for _, row := range rows {
			id, err := protocol.ParseSimple(row.ID)
			if err != nil {
				continue
			}
			simple = append(simple, protocol.SimpleChannel{
				ID:   id,
				Name: row.Name,
				Rank: protocol.RankMember,
			})
		}
		return sess.Reply(number, &protocol.ListResponse{
			What:   protocol.ListInvites,
			Simple: simple,
		})

	case protocol.ListMembers:
		roster, err := channelRoster(ctx, deps, req.Channel)
		if err != nil {
			return err
		}
		present := false
		members := make([]protocol.ChannelMember, 0, len(roster))
		for _, m := range roster {
			if m.LodestoneID == user.LodestoneID {
				present = true
			}
			worldID, ok := deps.Worlds.IDForName(m.World)
			if !ok {
				continue
			}
			members = append(members, protocol.ChannelMember{
				Name:   m.Name,
				World:  worldID,
				Rank:   protocol.RankFromU8(m.Rank),
				Online: deps.Registry.Get(m.LodestoneID) != nil,
			})
		}
		if !present {
			return sess.Reply(number, protocol.NewError(&req.Channel, "user not in channel"))
		}
		return sess.Reply(number, &protocol.ListResponse{
			What:    protocol.ListMembers,
			ID:      req.Channel,
			Members: members,
		})
	}

	return nil
}

// fullChannels resolves a set of channel ids into full channel views,
// skipping ids that no longer parse or resolve.
func fullChannels(ctx context.Context, deps *Deps, ids func() ([]string, error)) ([]protocol.Channel, error) {
	raw, err := ids()
	if err != nil {
		return nil, err
	}
	channels := make([]protocol.Channel, 0, len(raw))
	for _, s := range raw {
		id, err := protocol.ParseSimple(s)
		if err != nil {
			continue
		}
		ch, err := channelGet(ctx, deps, id)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			continue
		}
		channels = append(channels, *ch)
	}
	return channels, nil
}
