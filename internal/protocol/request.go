package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// RequestKind is one client-to-server message. The tag is the map key
// the kind travels under on the wire.
type RequestKind interface {
	RequestTag() string
}

// requestKinds maps wire tags to payload factories for decoding.
var requestKinds = map[string]func() RequestKind{
	"ping":           func() RequestKind { return &PingRequest{} },
	"version":        func() RequestKind { return &VersionRequest{} },
	"register":       func() RequestKind { return &RegisterRequest{} },
	"authenticate":   func() RequestKind { return &AuthenticateRequest{} },
	"message":        func() RequestKind { return &MessageRequest{} },
	"create":         func() RequestKind { return &CreateRequest{} },
	"disband":        func() RequestKind { return &DisbandRequest{} },
	"invite":         func() RequestKind { return &InviteRequest{} },
	"join":           func() RequestKind { return &JoinRequest{} },
	"leave":          func() RequestKind { return &LeaveRequest{} },
	"kick":           func() RequestKind { return &KickRequest{} },
	"list":           func() RequestKind { return &ListRequest{} },
	"promote":        func() RequestKind { return &PromoteRequest{} },
	"update":         func() RequestKind { return &UpdateRequest{} },
	"public_key":     func() RequestKind { return &PublicKeyRequest{} },
	"secrets":        func() RequestKind { return &SecretsRequest{} },
	"send_secrets":   func() RequestKind { return &SendSecretsRequest{} },
	"allow_invites":  func() RequestKind { return &AllowInvitesRequest{} },
	"delete_account": func() RequestKind { return &DeleteAccountRequest{} },
}

// PingRequest asks for a pong. Any session state.
type PingRequest struct {
	_msgpack struct{} `msgpack:",as_array"`
}

func (*PingRequest) RequestTag() string { return "ping" }

// VersionRequest announces the client's protocol version. Must be the
// first exchange on a fresh session.
type VersionRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Version uint32
}

func (*VersionRequest) RequestTag() string { return "version" }

// RegisterRequest creates an account for a character, in two steps:
// first without the challenge completed to obtain one, then again with
// it completed once the challenge string is on the Lodestone profile.
type RegisterRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name               string
	World              uint16
	ChallengeCompleted bool
}

func (*RegisterRequest) RequestTag() string { return "register" }

// AuthenticateRequest logs a session in with an API key and announces
// the client's public key. AllowInvites was added after the first
// protocol release, so a 2-field payload is accepted and defaults it
// to true.
type AuthenticateRequest struct {
	Key          string
	PK           []byte
	AllowInvites bool
}

func (*AuthenticateRequest) RequestTag() string { return "authenticate" }

func (r AuthenticateRequest) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeString(r.Key); err != nil {
		return err
	}
	if err := encodeBin(enc, r.PK); err != nil {
		return err
	}
	return enc.EncodeBool(r.AllowInvites)
}

func (r *AuthenticateRequest) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 && n != 3 {
		return fmt.Errorf("authenticate: want 2 or 3 fields, got %d", n)
	}
	if r.Key, err = dec.DecodeString(); err != nil {
		return err
	}
	if r.PK, err = dec.DecodeBytes(); err != nil {
		return err
	}
	r.AllowInvites = true
	if n == 3 {
		if r.AllowInvites, err = dec.DecodeBool(); err != nil {
			return err
		}
	}
	return nil
}

// MessageRequest sends an encrypted message to a channel.
type MessageRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Message []byte
}

func (*MessageRequest) RequestTag() string { return "message" }

// CreateRequest creates a channel with an encrypted name. The creator
// becomes its admin.
type CreateRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name []byte
}

func (*CreateRequest) RequestTag() string { return "create" }

// DisbandRequest deletes a channel outright. Admin only.
type DisbandRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
}

func (*DisbandRequest) RequestTag() string { return "disband" }

// InviteRequest invites a character to a channel, carrying the channel
// secret encrypted to the invitee's public key.
type InviteRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel         UUID
	Name            string
	World           uint16
	EncryptedSecret []byte
}

func (*InviteRequest) RequestTag() string { return "invite" }

// JoinRequest accepts an invite.
type JoinRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
}

func (*JoinRequest) RequestTag() string { return "join" }

// LeaveRequest leaves a channel, or declines an invite to it.
type LeaveRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
}

func (*LeaveRequest) RequestTag() string { return "leave" }

// KickRequest removes a member or cancels an invite. Moderator and up;
// the target must rank strictly below the kicker.
type KickRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Name    string
	World   uint16
}

func (*KickRequest) RequestTag() string { return "kick" }

// ListWhat selects which listing a ListRequest asks for.
type ListWhat uint8

const (
	ListAll ListWhat = iota
	ListChannels
	ListMembers
	ListInvites
)

// ListRequest asks for channel listings. On the wire the payload-free
// forms are bare strings and the members form is a {"members": uuid}
// map.
type ListRequest struct {
	What    ListWhat
	Channel UUID
}

func (*ListRequest) RequestTag() string { return "list" }

func (r ListRequest) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch r.What {
	case ListAll:
		return enc.EncodeString("all")
	case ListChannels:
		return enc.EncodeString("channels")
	case ListInvites:
		return enc.EncodeString("invites")
	case ListMembers:
		if err := enc.EncodeMapLen(1); err != nil {
			return err
		}
		if err := enc.EncodeString("members"); err != nil {
			return err
		}
		return r.Channel.EncodeMsgpack(enc)
	default:
		return fmt.Errorf("list: unknown kind %d", r.What)
	}
}

func (r *ListRequest) DecodeMsgpack(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if msgpcode.IsString(c) {
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		switch s {
		case "all":
			r.What = ListAll
		case "channels":
			r.What = ListChannels
		case "invites":
			r.What = ListInvites
		default:
			return fmt.Errorf("list: unknown kind %q", s)
		}
		return nil
	}
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("list: want 1 entry, got %d", n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return err
	}
	if tag != "members" {
		return fmt.Errorf("list: unknown kind %q", tag)
	}
	r.What = ListMembers
	return r.Channel.DecodeMsgpack(dec)
}

// PromoteRequest sets a member's rank. Admin only; promoting someone
// else to admin demotes the caller to moderator.
type PromoteRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Name    string
	World   uint16
	Rank    Rank
}

func (*PromoteRequest) RequestTag() string { return "promote" }

// UpdateKind is the channel property an UpdateRequest changes. Renaming
// is the only update so far; the map-keyed wire form leaves room for
// more.
type UpdateKind struct {
	Name []byte
}

func (k UpdateKind) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString("name"); err != nil {
		return err
	}
	return encodeBin(enc, k.Name)
}

func (k *UpdateKind) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("update kind: want 1 entry, got %d", n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return err
	}
	if tag != "name" {
		return fmt.Errorf("update kind: unknown kind %q", tag)
	}
	k.Name, err = dec.DecodeBytes()
	return err
}

// UpdateRequest changes a channel property. Admin only.
type UpdateRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Kind    UpdateKind
}

func (*UpdateRequest) RequestTag() string { return "update" }

// PublicKeyRequest looks up a character's announced public key.
type PublicKeyRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name  string
	World uint16
}

func (*PublicKeyRequest) RequestTag() string { return "public_key" }

// SecretsRequest asks online channel members to re-send the channel
// secret to a member who lost it.
type SecretsRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
}

func (*SecretsRequest) RequestTag() string { return "secrets" }

// SendSecretsRequest answers a relayed secrets request with the secret
// encrypted to the requester's public key.
type SendSecretsRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	RequestID             UUID
	EncryptedSharedSecret []byte
}

func (*SendSecretsRequest) RequestTag() string { return "send_secrets" }

// AllowInvitesRequest toggles whether the account accepts new invites.
type AllowInvitesRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Allowed bool
}

func (*AllowInvitesRequest) RequestTag() string { return "allow_invites" }

// DeleteAccountRequest deletes the logged-in account and everything
// attached to it.
type DeleteAccountRequest struct {
	_msgpack struct{} `msgpack:",as_array"`
}

func (*DeleteAccountRequest) RequestTag() string { return "delete_account" }
