package handler

import (
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleAllowInvites toggles whether other characters can see this
// session's public key and send it invites.
func HandleAllowInvites(sess *net.Session, number uint32, req *protocol.AllowInvitesRequest) error {
	sess.SetAllowInvites(req.Allowed)
	return sess.Reply(number, &protocol.AllowInvitesResponse{Allowed: req.Allowed})
}
