package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare key",
			in:   "extrachat_3mJr7AoUXx2Wqd_8tbFNhzzGW9xyzABC",
			want: "[redacted]",
		},
		{
			name: "key in sentence",
			in:   "user sent key extrachat_abc_def during login",
			want: "user sent key [redacted] during login",
		},
		{
			name: "two keys",
			in:   "extrachat_a_b extrachat_c_d",
			want: "[redacted] [redacted]",
		},
		{
			name: "no key",
			in:   "nothing to see",
			want: "nothing to see",
		},
		{
			name: "prefix alone",
			in:   "extrachat_",
			want: "extrachat_",
		},
		{
			name: "invalid base58 not matched",
			in:   "extrachat_0O_Il",
			want: "extrachat_0O_Il",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.in))
		})
	}
}

func TestRedactingCore(t *testing.T) {
	observed, logs := observer.New(zap.DebugLevel)
	log := zap.New(WrapRedacting(observed))

	log.Info(
		"authenticated with extrachat_abc_def",
		zap.String("key", "extrachat_xyz_123"),
		zap.Int("world", 73),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "authenticated with [redacted]", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "[redacted]", fields["key"])
	assert.EqualValues(t, 73, fields["world"])
}

func TestRedactingCoreWith(t *testing.T) {
	observed, logs := observer.New(zap.DebugLevel)
	log := zap.New(WrapRedacting(observed)).With(zap.String("key", "extrachat_a_b"))

	log.Warn("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "[redacted]", entries[0].ContextMap()["key"])
}
