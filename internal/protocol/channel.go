package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Channel is a full channel view: id, encrypted name and member list.
type Channel struct {
	ID      UUID
	Name    []byte
	Members []ChannelMember
}

func (c Channel) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := c.ID.EncodeMsgpack(enc); err != nil {
		return err
	}
	if err := encodeBin(enc, c.Name); err != nil {
		return err
	}
	return encodeMembers(enc, c.Members)
}

func (c *Channel) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 3 {
		return fmt.Errorf("channel: want 3 fields, got %d", n)
	}
	if err := c.ID.DecodeMsgpack(dec); err != nil {
		return err
	}
	if c.Name, err = dec.DecodeBytes(); err != nil {
		return err
	}
	c.Members, err = decodeMembers(dec)
	return err
}

// ChannelMember is one row of a channel's member list.
type ChannelMember struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name   string
	World  uint16
	Rank   Rank
	Online bool
}

// SimpleChannel is the compact channel view used in listings: no member
// roster, but the viewer's own rank in the channel.
type SimpleChannel struct {
	_msgpack struct{} `msgpack:",as_array"`

	ID   UUID
	Name []byte
	Rank Rank
}
