package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ResponseKind is one server-to-client message.
type ResponseKind interface {
	ResponseTag() string
}

var responseKinds = map[string]func() ResponseKind{
	"ping":           func() ResponseKind { return &PingResponse{} },
	"version":        func() ResponseKind { return &VersionResponse{} },
	"register":       func() ResponseKind { return &RegisterResponse{} },
	"authenticate":   func() ResponseKind { return &AuthenticateResponse{} },
	"message":        func() ResponseKind { return &MessageResponse{} },
	"error":          func() ResponseKind { return &ErrorResponse{} },
	"create":         func() ResponseKind { return &CreateResponse{} },
	"disband":        func() ResponseKind { return &DisbandResponse{} },
	"invite":         func() ResponseKind { return &InviteResponse{} },
	"invited":        func() ResponseKind { return &InvitedResponse{} },
	"join":           func() ResponseKind { return &JoinResponse{} },
	"leave":          func() ResponseKind { return &LeaveResponse{} },
	"kick":           func() ResponseKind { return &KickResponse{} },
	"list":           func() ResponseKind { return &ListResponse{} },
	"promote":        func() ResponseKind { return &PromoteResponse{} },
	"update":         func() ResponseKind { return &UpdateResponse{} },
	"updated":        func() ResponseKind { return &UpdatedResponse{} },
	"public_key":     func() ResponseKind { return &PublicKeyResponse{} },
	"member_change":  func() ResponseKind { return &MemberChangeResponse{} },
	"secrets":        func() ResponseKind { return &SecretsResponse{} },
	"send_secrets":   func() ResponseKind { return &SendSecretsResponse{} },
	"announce":       func() ResponseKind { return &AnnounceResponse{} },
	"allow_invites":  func() ResponseKind { return &AllowInvitesResponse{} },
	"delete_account": func() ResponseKind { return &DeleteAccountResponse{} },
}

type PingResponse struct {
	_msgpack struct{} `msgpack:",as_array"`
}

func (*PingResponse) ResponseTag() string { return "ping" }

type VersionResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Version uint32
}

func (*VersionResponse) ResponseTag() string { return "version" }

// RegisterStatus selects the outcome a RegisterResponse carries.
type RegisterStatus uint8

const (
	RegisterChallenge RegisterStatus = iota
	RegisterFailure
	RegisterSuccess
)

// RegisterResponse is the registration outcome: a challenge string to
// put on the Lodestone profile, a verification failure, or the fresh
// API key.
type RegisterResponse struct {
	Status    RegisterStatus
	Challenge string
	Key       string
}

func (*RegisterResponse) ResponseTag() string { return "register" }

func (r RegisterResponse) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch r.Status {
	case RegisterFailure:
		return enc.EncodeString("failure")
	case RegisterChallenge:
		if err := encodeVariant(enc, "challenge", 1); err != nil {
			return err
		}
		return enc.EncodeString(r.Challenge)
	case RegisterSuccess:
		if err := encodeVariant(enc, "success", 1); err != nil {
			return err
		}
		return enc.EncodeString(r.Key)
	default:
		return fmt.Errorf("register: unknown status %d", r.Status)
	}
}

func (r *RegisterResponse) DecodeMsgpack(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if msgpcode.IsString(c) {
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		if s != "failure" {
			return fmt.Errorf("register: unknown status %q", s)
		}
		r.Status = RegisterFailure
		return nil
	}
	tag, n, err := decodeVariant(dec)
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("register %s: want 1 field, got %d", tag, n)
	}
	switch tag {
	case "challenge":
		r.Status = RegisterChallenge
		r.Challenge, err = dec.DecodeString()
	case "success":
		r.Status = RegisterSuccess
		r.Key, err = dec.DecodeString()
	default:
		return fmt.Errorf("register: unknown status %q", tag)
	}
	return err
}

type AuthenticateResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Error *string
}

func (*AuthenticateResponse) ResponseTag() string { return "authenticate" }

// AuthenticateOK reports a successful login.
func AuthenticateOK() *AuthenticateResponse {
	return &AuthenticateResponse{}
}

// AuthenticateError reports a failed login.
func AuthenticateError(msg string) *AuthenticateResponse {
	return &AuthenticateResponse{Error: &msg}
}

type MessageResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Sender  string
	World   uint16
	Message []byte
}

func (*MessageResponse) ResponseTag() string { return "message" }

// ErrorResponse reports a request-level failure, optionally tied to a
// channel so the client can surface it in the right place.
type ErrorResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel *UUID
	Error   string
}

func (*ErrorResponse) ResponseTag() string { return "error" }

// NewError builds an ErrorResponse. Pass nil for errors not tied to a
// channel.
func NewError(channel *UUID, msg string) *ErrorResponse {
	return &ErrorResponse{Channel: channel, Error: msg}
}

type CreateResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel Channel
}

func (*CreateResponse) ResponseTag() string { return "create" }

type DisbandResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
}

func (*DisbandResponse) ResponseTag() string { return "disband" }

// InviteResponse confirms an invite to the inviter.
type InviteResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Name    string
	World   uint16
}

func (*InviteResponse) ResponseTag() string { return "invite" }

// InvitedResponse tells a user they were invited, carrying the full
// channel view, the inviter's public key and the channel secret
// encrypted to the invitee.
type InvitedResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel         Channel
	Name            string
	World           uint16
	PK              []byte
	EncryptedSecret []byte
}

func (*InvitedResponse) ResponseTag() string { return "invited" }

type JoinResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel Channel
}

func (*JoinResponse) ResponseTag() string { return "join" }

type LeaveResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Error   *string
}

func (*LeaveResponse) ResponseTag() string { return "leave" }

// LeaveOK confirms leaving a channel.
func LeaveOK(channel UUID) *LeaveResponse {
	return &LeaveResponse{Channel: channel}
}

// LeaveError reports a failed leave for a channel.
func LeaveError(channel UUID, msg string) *LeaveResponse {
	return &LeaveResponse{Channel: channel, Error: &msg}
}

// KickResponse confirms a kick to the kicker.
type KickResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Name    string
	World   uint16
}

func (*KickResponse) ResponseTag() string { return "kick" }

// ListResponse answers a ListRequest. The populated fields depend on
// What, mirroring the request forms.
type ListResponse struct {
	What     ListWhat
	Channels []Channel
	Invites  []Channel
	Simple   []SimpleChannel
	ID       UUID
	Members  []ChannelMember
}

func (*ListResponse) ResponseTag() string { return "list" }

func (r ListResponse) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch r.What {
	case ListAll:
		if err := encodeVariant(enc, "all", 2); err != nil {
			return err
		}
		if err := encodeChannels(enc, r.Channels); err != nil {
			return err
		}
		return encodeChannels(enc, r.Invites)
	case ListChannels:
		if err := enc.EncodeMapLen(1); err != nil {
			return err
		}
		if err := enc.EncodeString("channels"); err != nil {
			return err
		}
		return encodeSimpleChannels(enc, r.Simple)
	case ListInvites:
		if err := enc.EncodeMapLen(1); err != nil {
			return err
		}
		if err := enc.EncodeString("invites"); err != nil {
			return err
		}
		return encodeSimpleChannels(enc, r.Simple)
	case ListMembers:
		if err := encodeVariant(enc, "members", 2); err != nil {
			return err
		}
		if err := r.ID.EncodeMsgpack(enc); err != nil {
			return err
		}
		return encodeMembers(enc, r.Members)
	default:
		return fmt.Errorf("list: unknown kind %d", r.What)
	}
}

func (r *ListResponse) DecodeMsgpack(dec *msgpack.Decoder) error {
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
	switch tag {
	case "all":
		r.What = ListAll
		m, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if m != 2 {
			return fmt.Errorf("list all: want 2 fields, got %d", m)
		}
		if r.Channels, err = decodeChannels(dec); err != nil {
			return err
		}
		r.Invites, err = decodeChannels(dec)
		return err
	case "channels":
		r.What = ListChannels
		r.Simple, err = decodeSimpleChannels(dec)
		return err
	case "invites":
		r.What = ListInvites
		r.Simple, err = decodeSimpleChannels(dec)
		return err
	case "members":
		r.What = ListMembers
		m, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if m != 2 {
			return fmt.Errorf("list members: want 2 fields, got %d", m)
		}
		if err := r.ID.DecodeMsgpack(dec); err != nil {
			return err
		}
		r.Members, err = decodeMembers(dec)
		return err
	default:
		return fmt.Errorf("list: unknown kind %q", tag)
	}
}

type PromoteResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Name    string
	World   uint16
	Rank    Rank
}

func (*PromoteResponse) ResponseTag() string { return "promote" }

// UpdateResponse confirms an update to its sender.
type UpdateResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
}

func (*UpdateResponse) ResponseTag() string { return "update" }

// UpdatedResponse tells channel members what changed.
type UpdatedResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Kind    UpdateKind
}

func (*UpdatedResponse) ResponseTag() string { return "updated" }

// PublicKeyResponse carries a character's announced public key, or nil
// when the character is unknown or offline.
type PublicKeyResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name  string
	World uint16
	PK    []byte
}

func (*PublicKeyResponse) ResponseTag() string { return "public_key" }

// MemberChangeType discriminates MemberChangeKind variants.
type MemberChangeType uint8

const (
	MemberChangeInvite MemberChangeType = iota
	MemberChangeInviteDecline
	MemberChangeInviteCancel
	MemberChangeJoin
	MemberChangeLeave
	MemberChangePromote
	MemberChangeKick
)

// MemberChangeKind describes what happened to the member named in a
// MemberChangeResponse. Actor carries the inviter, canceler or kicker
// where the variant has one; Rank is only set for promotions.
type MemberChangeKind struct {
	Type       MemberChangeType
	Actor      string
	ActorWorld uint16
	Rank       Rank
}

func (k MemberChangeKind) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch k.Type {
	case MemberChangeInviteDecline:
		return enc.EncodeString("invite_decline")
	case MemberChangeJoin:
		return enc.EncodeString("join")
	case MemberChangeLeave:
		return enc.EncodeString("leave")
	case MemberChangeInvite:
		return encodeActorVariant(enc, "invite", k.Actor, k.ActorWorld)
	case MemberChangeInviteCancel:
		return encodeActorVariant(enc, "invite_cancel", k.Actor, k.ActorWorld)
	case MemberChangeKick:
		return encodeActorVariant(enc, "kick", k.Actor, k.ActorWorld)
	case MemberChangePromote:
		if err := encodeVariant(enc, "promote", 1); err != nil {
			return err
		}
		return enc.EncodeUint(uint64(k.Rank))
	default:
		return fmt.Errorf("member change: unknown kind %d", k.Type)
	}
}

func (k *MemberChangeKind) DecodeMsgpack(dec *msgpack.Decoder) error {
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
		case "invite_decline":
			k.Type = MemberChangeInviteDecline
		case "join":
			k.Type = MemberChangeJoin
		case "leave":
			k.Type = MemberChangeLeave
		default:
			return fmt.Errorf("member change: unknown kind %q", s)
		}
		return nil
	}
	tag, n, err := decodeVariant(dec)
	if err != nil {
		return err
	}
	switch tag {
	case "invite", "invite_cancel", "kick":
		if n != 2 {
			return fmt.Errorf("member change %s: want 2 fields, got %d", tag, n)
		}
		switch tag {
		case "invite":
			k.Type = MemberChangeInvite
		case "invite_cancel":
			k.Type = MemberChangeInviteCancel
		case "kick":
			k.Type = MemberChangeKick
		}
		if k.Actor, err = dec.DecodeString(); err != nil {
			return err
		}
		k.ActorWorld, err = dec.DecodeUint16()
		return err
	case "promote":
		if n != 1 {
			return fmt.Errorf("member change promote: want 1 field, got %d", n)
		}
		k.Type = MemberChangePromote
		u, err := dec.DecodeUint8()
		if err != nil {
			return err
		}
		k.Rank = RankFromU8(u)
		return nil
	default:
		return fmt.Errorf("member change: unknown kind %q", tag)
	}
}

func encodeActorVariant(enc *msgpack.Encoder, tag, actor string, world uint16) error {
	if err := encodeVariant(enc, tag, 2); err != nil {
		return err
	}
	if err := enc.EncodeString(actor); err != nil {
		return err
	}
	return enc.EncodeUint(uint64(world))
}

// MemberChangeResponse tells channel members that the named member's
// standing changed.
type MemberChangeResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel UUID
	Name    string
	World   uint16
	Kind    MemberChangeKind
}

func (*MemberChangeResponse) ResponseTag() string { return "member_change" }

// SecretsResponse delivers a recovered channel secret to the user who
// asked for it.
type SecretsResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel               UUID
	PK                    []byte
	EncryptedSharedSecret []byte
}

func (*SecretsResponse) ResponseTag() string { return "secrets" }

// SendSecretsResponse asks an online channel member to encrypt the
// channel secret to the given public key and send it back.
type SendSecretsResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Channel   UUID
	RequestID UUID
	PK        []byte
}

func (*SendSecretsResponse) ResponseTag() string { return "send_secrets" }

// AnnounceResponse carries a server-wide announcement.
type AnnounceResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Announcement string
}

func (*AnnounceResponse) ResponseTag() string { return "announce" }

type AllowInvitesResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	Allowed bool
}

func (*AllowInvitesResponse) ResponseTag() string { return "allow_invites" }

type DeleteAccountResponse struct {
	_msgpack struct{} `msgpack:",as_array"`
}

func (*DeleteAccountResponse) ResponseTag() string { return "delete_account" }
