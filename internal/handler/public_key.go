package handler

import (
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
	"github.com/extrachat/server/internal/registry"
)

// HandlePublicKey looks up the public key of an online character. Only
// the in-memory index is consulted; offline characters and characters
// who disabled invites both come back with no key.
func HandlePublicKey(sess *net.Session, number uint32, req *protocol.PublicKeyRequest, deps *Deps) error {
	var pk []byte
	if id, ok := deps.Registry.IDFor(registry.IDKey{Name: req.Name, World: req.World}); ok {
		if target := deps.Registry.Get(id); target != nil && target.AllowInvites() {
			pk = target.PK()
		}
	}
	return sess.Reply(number, &protocol.PublicKeyResponse{
		Name:  req.Name,
		World: req.World,
		PK:    pk,
	})
}
