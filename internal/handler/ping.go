package handler

import (
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

func HandlePing(sess *net.Session, number uint32) error {
	return sess.Reply(number, &protocol.PingResponse{})
}
