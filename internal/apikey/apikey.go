// Package apikey implements the prefixed API keys handed out at
// registration: "extrachat_<short>_<long>", both tokens base58.
//
// The short token is the database lookup shard; only a SHA3-256 digest
// of the long token's raw bytes is ever stored.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// Prefix is the fixed key prefix.
const Prefix = "extrachat"

const (
	shortTokenBytes = 8
	longTokenBytes  = 24
)

var ErrMalformed = errors.New("malformed api key")

// Key is a parsed or freshly generated API key.
type Key struct {
	ShortToken string
	LongToken  string

	longBytes []byte
}

// Generate creates a new random key.
func Generate() (*Key, error) {
	short := make([]byte, shortTokenBytes)
	if _, err := rand.Read(short); err != nil {
		return nil, fmt.Errorf("generate short token: %w", err)
	}
	long := make([]byte, longTokenBytes)
	if _, err := rand.Read(long); err != nil {
		return nil, fmt.Errorf("generate long token: %w", err)
	}

	return &Key{
		ShortToken: base58.Encode(short),
		LongToken:  base58.Encode(long),
		longBytes:  long,
	}, nil
}

// Parse splits and validates a key string of the form
// "extrachat_<short>_<long>".
func Parse(s string) (*Key, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}
	if parts[0] != Prefix || parts[1] == "" || parts[2] == "" {
		return nil, ErrMalformed
	}

	// decoding also rejects characters outside the base58 alphabet
	if _, err := base58.Decode(parts[1]); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	long, err := base58.Decode(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	return &Key{
		ShortToken: parts[1],
		LongToken:  parts[2],
		longBytes:  long,
	}, nil
}

func (k *Key) String() string {
	return Prefix + "_" + k.ShortToken + "_" + k.LongToken
}

// Hash returns the hex SHA3-256 digest of the long token's raw bytes.
// This is the value stored next to the short token.
func (k *Key) Hash() string {
	sum := sha3.Sum256(k.longBytes)
	return hex.EncodeToString(sum[:])
}
