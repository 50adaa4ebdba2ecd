package handler

import (
	"context"

	"github.com/extrachat/server/internal/persist"
	"github.com/extrachat/server/internal/protocol"
	"github.com/extrachat/server/internal/registry"
)

// channelGet assembles the full channel view: id, encrypted name, and
// the roster of members plus pending invitees with world ids and online
// flags. Roster rows whose stored world no longer parses are skipped.
// Returns nil when the channel does not exist.
func channelGet(ctx context.Context, deps *Deps, id protocol.UUID) (*protocol.Channel, error) {
	row, err := deps.Channels.Get(ctx, id.Simple())
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	roster, err := channelRoster(ctx, deps, id)
	if err != nil {
		return nil, err
	}

	ch := &protocol.Channel{ID: id, Name: row.Name}
	for _, m := range roster {
		worldID, ok := deps.Worlds.IDForName(m.World)
		if !ok {
			continue
		}
		ch.Members = append(ch.Members, protocol.ChannelMember{
			Name:   m.Name,
			World:  worldID,
			Rank:   protocol.RankFromU8(m.Rank),
			Online: deps.Registry.Get(m.LodestoneID) != nil,
		})
	}
	return ch, nil
}

// channelRoster returns the channel's members followed by its pending
// invitees.
func channelRoster(ctx context.Context, deps *Deps, id protocol.UUID) ([]persist.RawMember, error) {
	members, err := deps.Channels.RawMembers(ctx, id.Simple())
	if err != nil {
		return nil, err
	}
	invited, err := deps.Channels.RawInvitedMembers(ctx, id.Simple())
	if err != nil {
		return nil, err
	}
	return append(members, invited...), nil
}

// sendToAll fans an envelope out to every online member and invitee of
// a channel. Sends never block; a peer with a full queue misses the
// envelope.
func sendToAll(ctx context.Context, deps *Deps, channel protocol.UUID, number uint32, kind protocol.ResponseKind) error {
	roster, err := channelRoster(ctx, deps, channel)
	if err != nil {
		return err
	}

	env := &protocol.ResponseContainer{Number: number, Kind: kind}
	for _, m := range roster {
		if sess := deps.Registry.Get(m.LodestoneID); sess != nil {
			sess.TrySend(env)
		}
	}
	return nil
}

// resolveID finds the lodestone id for a character, checking the
// online index first and falling back to the users table.
func resolveID(ctx context.Context, deps *Deps, name string, world uint16) (uint64, bool, error) {
	if id, ok := deps.Registry.IDFor(registry.IDKey{Name: name, World: world}); ok {
		return id, true, nil
	}
	worldName, ok := deps.Worlds.NameForID(world)
	if !ok {
		return 0, false, nil
	}
	row, err := deps.Users.ByName(ctx, name, worldName)
	if err != nil || row == nil {
		return 0, false, err
	}
	return row.LodestoneID, true, nil
}

// memberRank returns a user's rank in a channel; ok is false for
// non-members.
func memberRank(ctx context.Context, deps *Deps, channel protocol.UUID, lodestoneID uint64) (protocol.Rank, bool, error) {
	r, ok, err := deps.Channels.Rank(ctx, channel.Simple(), lodestoneID)
	if err != nil || !ok {
		return 0, false, err
	}
	return protocol.RankFromU8(r), true, nil
}

// rankOrInvite is memberRank extended to pending invitees, who count
// as Invited.
func rankOrInvite(ctx context.Context, deps *Deps, channel protocol.UUID, lodestoneID uint64) (protocol.Rank, bool, error) {
	if r, ok, err := memberRank(ctx, deps, channel, lodestoneID); err != nil || ok {
		return r, ok, err
	}
	invited, err := deps.Channels.IsInvited(ctx, channel.Simple(), lodestoneID)
	if err != nil || !invited {
		return 0, false, err
	}
	return protocol.RankInvited, true, nil
}
