package handler

import (
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// HandleVersion checks protocol compatibility. A client speaking a
// different version gets one error envelope and then the session ends.
func HandleVersion(sess *net.Session, number uint32, req *protocol.VersionRequest) error {
	if req.Version != protocol.Version {
		if err := sess.Reply(number, protocol.NewError(nil, "unsupported version")); err != nil {
			return err
		}
		return net.ErrCloseSession
	}
	return sess.Reply(number, &protocol.VersionResponse{Version: protocol.Version})
}
