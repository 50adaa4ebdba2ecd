package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// RequestContainer pairs a client message with the number the client
// picked for it. Replies echo the number so the client can match them
// up; pushed messages use a server-chosen number.
type RequestContainer struct {
	Number uint32
	Kind   RequestKind
}

func (c RequestContainer) EncodeMsgpack(enc *msgpack.Encoder) error {
	if c.Kind == nil {
		return errors.New("request container without kind")
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(c.Number)); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString(c.Kind.RequestTag()); err != nil {
		return err
	}
	return enc.Encode(c.Kind)
}

func (c *RequestContainer) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("container: want 2 elements, got %d", n)
	}
	if c.Number, err = dec.DecodeUint32(); err != nil {
		return fmt.Errorf("container number: %w", err)
	}
	m, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("request kind: %w", err)
	}
	if m != 1 {
		return fmt.Errorf("request kind: want 1 entry, got %d", m)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return fmt.Errorf("request kind: %w", err)
	}
	factory, ok := requestKinds[tag]
	if !ok {
		return fmt.Errorf("unknown request kind %q", tag)
	}
	kind := factory()
	if err := dec.Decode(kind); err != nil {
		return fmt.Errorf("decode %s request: %w", tag, err)
	}
	c.Kind = kind
	return nil
}

// ResponseContainer pairs a server message with its number.
type ResponseContainer struct {
	Number uint32
	Kind   ResponseKind
}

func (c ResponseContainer) EncodeMsgpack(enc *msgpack.Encoder) error {
	if c.Kind == nil {
		return errors.New("response container without kind")
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(c.Number)); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString(c.Kind.ResponseTag()); err != nil {
		return err
	}
	return enc.Encode(c.Kind)
}

func (c *ResponseContainer) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}
	if n != 2 {
		return fmt.Errorf("container: want 2 elements, got %d", n)
	}
	if c.Number, err = dec.DecodeUint32(); err != nil {
		return fmt.Errorf("container number: %w", err)
	}
	m, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("response kind: %w", err)
	}
	if m != 1 {
		return fmt.Errorf("response kind: want 1 entry, got %d", m)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return fmt.Errorf("response kind: %w", err)
	}
	factory, ok := responseKinds[tag]
	if !ok {
		return fmt.Errorf("unknown response kind %q", tag)
	}
	kind := factory()
	if err := dec.Decode(kind); err != nil {
		return fmt.Errorf("decode %s response: %w", tag, err)
	}
	c.Kind = kind
	return nil
}

// DecodeRequest parses one client frame.
func DecodeRequest(data []byte) (*RequestContainer, error) {
	var c RequestContainer
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// EncodeRequest serializes one client frame.
func EncodeRequest(c *RequestContainer) ([]byte, error) {
	return encode(c)
}

// DecodeResponse parses one server frame.
func DecodeResponse(data []byte) (*ResponseContainer, error) {
	var c ResponseContainer
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// EncodeResponse serializes one server frame.
func EncodeResponse(c *ResponseContainer) ([]byte, error) {
	return encode(c)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeVariant writes the {tag: [ ... ]} head of a struct-style enum
// variant with the given field count.
func encodeVariant(enc *msgpack.Encoder, tag string, fields int) error {
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString(tag); err != nil {
		return err
	}
	return enc.EncodeArrayLen(fields)
}

// decodeVariant reads the head written by encodeVariant, returning the
// tag and field count.
func decodeVariant(dec *msgpack.Decoder) (string, int, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return "", 0, err
	}
	if n != 1 {
		return "", 0, fmt.Errorf("variant: want 1 entry, got %d", n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return "", 0, err
	}
	fields, err := dec.DecodeArrayLen()
	if err != nil {
		return "", 0, err
	}
	return tag, fields, nil
}

// encodeBin writes b as a bin, treating nil as empty.
func encodeBin(enc *msgpack.Encoder, b []byte) error {
	if b == nil {
		b = []byte{}
	}
	return enc.EncodeBytes(b)
}

func encodeChannels(enc *msgpack.Encoder, channels []Channel) error {
	if err := enc.EncodeArrayLen(len(channels)); err != nil {
		return err
	}
	for i := range channels {
		if err := channels[i].EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func decodeChannels(dec *msgpack.Decoder) ([]Channel, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Channel{}, nil
	}
	out := make([]Channel, 0, n)
	for i := 0; i < n; i++ {
		var c Channel
		if err := c.DecodeMsgpack(dec); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func encodeSimpleChannels(enc *msgpack.Encoder, channels []SimpleChannel) error {
	if err := enc.EncodeArrayLen(len(channels)); err != nil {
		return err
	}
	for i := range channels {
		if err := enc.Encode(&channels[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodeSimpleChannels(dec *msgpack.Decoder) ([]SimpleChannel, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []SimpleChannel{}, nil
	}
	out := make([]SimpleChannel, 0, n)
	for i := 0; i < n; i++ {
		var c SimpleChannel
		if err := dec.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func encodeMembers(enc *msgpack.Encoder, members []ChannelMember) error {
	if err := enc.EncodeArrayLen(len(members)); err != nil {
		return err
	}
	for i := range members {
		if err := enc.Encode(&members[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodeMembers(dec *msgpack.Decoder) ([]ChannelMember, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []ChannelMember{}, nil
	}
	out := make([]ChannelMember, 0, n)
	for i := 0; i < n; i++ {
		var m ChannelMember
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
