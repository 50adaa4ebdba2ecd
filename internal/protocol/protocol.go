// Package protocol defines the MessagePack wire format spoken over the
// WebSocket connection.
//
// A frame is a container: a 2-element array of [number, kind]. The kind
// is a single-entry map keyed by the snake_case variant name; payload
// structs encode as positional arrays of their fields, payload-free
// variants as a bare string. Channel names, message bodies, public keys
// and shared secrets are opaque byte blobs end to end.
package protocol

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Version is the protocol version this server speaks. Clients
// negotiating any other version are rejected and disconnected.
const Version uint32 = 1

// Rank is a member's standing in a channel. Stored as-is in the
// database and sent as a plain integer on the wire.
type Rank uint8

const (
	RankInvited Rank = iota
	RankMember
	RankModerator
	RankAdmin
)

// RankFromU8 maps a stored integer to a Rank. Out-of-range values fall
// back to Member rather than failing.
func RankFromU8(u uint8) Rank {
	switch Rank(u) {
	case RankInvited, RankMember, RankModerator, RankAdmin:
		return Rank(u)
	default:
		return RankMember
	}
}

func (r Rank) String() string {
	switch r {
	case RankInvited:
		return "invited"
	case RankMember:
		return "member"
	case RankModerator:
		return "moderator"
	case RankAdmin:
		return "admin"
	default:
		return fmt.Sprintf("rank(%d)", uint8(r))
	}
}

// UUID is an RFC 4122 id carried as a 16-byte bin on the wire and as a
// 32-char lowercase hex string in the database.
type UUID [16]byte

// NewUUID returns a random (v4) id.
func NewUUID() UUID {
	return UUID(uuid.New())
}

// ParseSimple parses the 32-char hex form used in the database. The
// canonical dashed form is accepted too.
func ParseSimple(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, err
	}
	return UUID(u), nil
}

// Simple returns the 32-char lowercase hex form.
func (u UUID) Simple() string {
	return hex.EncodeToString(u[:])
}

func (u UUID) String() string {
	return uuid.UUID(u).String()
}

func (u UUID) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(u[:])
}

func (u *UUID) DecodeMsgpack(dec *msgpack.Decoder) error {
	b, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(b) != 16 {
		return fmt.Errorf("uuid: want 16 bytes, got %d", len(b))
	}
	copy(u[:], b)
	return nil
}

var (
	_ msgpack.CustomEncoder = UUID{}
	_ msgpack.CustomDecoder = (*UUID)(nil)
)
