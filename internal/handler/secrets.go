package handler

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
	"github.com/extrachat/server/internal/registry"
)

// HandleSecrets starts shared-secret recovery for a caller who lost
// their copy of a channel key. Roughly a tenth of the other online
// members (always at least one) are asked to re-encrypt the secret
// against the caller's public key. Replies arrive asynchronously via
// HandleSendSecrets; there is no direct response.
func HandleSecrets(ctx context.Context, sess *net.Session, number uint32, req *protocol.SecretsRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}

	if _, ok, err := rankOrInvite(ctx, deps, req.Channel, user.LodestoneID); err != nil {
		return err
	} else if !ok {
		return sess.Reply(number, protocol.NewError(&req.Channel, "not in that channel"))
	}

	roster, err := channelRoster(ctx, deps, req.Channel)
	if err != nil {
		return err
	}
	var online []uint64
	for _, m := range roster {
		if m.LodestoneID != user.LodestoneID && deps.Registry.Get(m.LodestoneID) != nil {
			online = append(online, m.LodestoneID)
		}
	}
	if len(online) == 0 {
		return sess.Reply(number, protocol.NewError(&req.Channel, "no other online members"))
	}

	// Ask 10% of the online members for their copy; the first answer
	// wins.
	amount := int(math.Round(float64(len(online)) / 10))
	if amount == 0 {
		amount = 1
	}
	rand.Shuffle(len(online), func(i, j int) {
		online[i], online[j] = online[j], online[i]
	})
	picked := online[:amount]
	if len(picked) == 0 {
		return sess.Reply(number, protocol.NewError(&req.Channel, "no online members found"))
	}

	requestID := protocol.NewUUID()
	deps.Registry.AddSecretsRequest(requestID, registry.SecretsRequestInfo{
		Requester: user.LodestoneID,
		Channel:   req.Channel,
		Number:    number,
	})

	env := &protocol.ResponseContainer{
		Number: 0,
		Kind: &protocol.SendSecretsResponse{
			Channel:   req.Channel,
			RequestID: requestID,
			PK:        sess.PK(),
		},
	}
	for _, id := range picked {
		if target := deps.Registry.Get(id); target != nil {
			target.TrySend(env)
		}
	}
	return nil
}

// HandleSendSecrets relays a member's answer to a recovery request
// back to the requester. The first valid answer consumes the pending
// request; later answers and answers to unknown requests are dropped
// silently.
func HandleSendSecrets(ctx context.Context, sess *net.Session, number uint32, req *protocol.SendSecretsRequest, deps *Deps) error {
	user := sess.User()
	if user == nil {
		return nil
	}
	if len(req.EncryptedSharedSecret) == 0 {
		return nil
	}

	info, ok := deps.Registry.SecretsRequest(req.RequestID)
	if !ok {
		return nil
	}

	if _, ok, err := rankOrInvite(ctx, deps, info.Channel, user.LodestoneID); err != nil {
		return err
	} else if !ok {
		// The request stays pending for members who actually belong.
		return sess.Reply(number, protocol.NewError(&info.Channel, "not in that channel"))
	}

	deps.Registry.RemoveSecretsRequest(req.RequestID)

	requester := deps.Registry.Get(info.Requester)
	if requester == nil {
		return nil
	}
	requester.TrySend(&protocol.ResponseContainer{
		Number: info.Number,
		Kind: &protocol.SecretsResponse{
			Channel:               info.Channel,
			PK:                    sess.PK(),
			EncryptedSharedSecret: req.EncryptedSharedSecret,
		},
	})
	return nil
}
