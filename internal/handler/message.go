package handler

import (
	"context"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleMessage relays an encrypted message to every online member of
// a linkshell, the sender included. Invitees have not accepted yet and
// hear nothing. There is no direct reply; the sender's copy comes back
// through the same fan-out.
func HandleMessage(ctx context.Context, sess *net.Session, number uint32, req *protocol.MessageRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	ids, err := deps.Channels.MemberIDs(ctx, req.Channel.Simple())
	if err != nil {
		return err
	}
	member := false
	for _, id := range ids {
		if id == user.LodestoneID {
			member = true
			break
		}
	}
	if !member {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not in channel"))
	}

	deps.Registry.AddMessagesSent(1)

	env := &protocol.ResponseContainer{
		Number: 0,
		Kind: &protocol.MessageResponse{
			Channel: req.Channel,
			Sender:  user.Name,
			World:   user.WorldID,
			Message: req.Message,
		},
	}
	for _, id := range ids {
		if target := deps.Registry.Get(id); target != nil {
			target.TrySend(env)
		}
	}
	return nil
}
