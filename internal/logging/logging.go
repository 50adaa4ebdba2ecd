// Package logging builds the process logger: stdout filtered by a
// runtime-adjustable level, an always-on debug file sink, and API key
// redaction on every sink.
package logging

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/extrachat/server/internal/config"
)

// keyRegex matches API keys. Keys must never reach stdout or disk, so
// every sink scrubs them.
var keyRegex = regexp.MustCompile(`extrachat_[1-9A-HJ-NP-Za-km-z]+_[1-9A-HJ-NP-Za-km-z]+`)

// Redact replaces any API key in s with a placeholder.
func Redact(s string) string {
	return keyRegex.ReplaceAllString(s, "[redacted]")
}

// New builds the logger. The returned AtomicLevel adjusts the stdout
// level at runtime; the file sink, when configured, always logs at
// debug.
func New(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	atomic := zap.NewAtomicLevelAt(level)

	var consoleEnc zapcore.Encoder
	if cfg.Format == "json" {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encCfg.ConsoleSeparator = "  "
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), atomic),
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, atomic, fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileCfg),
			zapcore.Lock(zapcore.AddSync(f)),
			zapcore.DebugLevel,
		))
	}

	return zap.New(WrapRedacting(zapcore.NewTee(cores...))), atomic, nil
}

// WrapRedacting wraps a core so messages and string fields are
// scrubbed before encoding.
func WrapRedacting(core zapcore.Core) zapcore.Core {
	return redactingCore{Core: core}
}

type redactingCore struct {
	zapcore.Core
}

func (c redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c redactingCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c redactingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = Redact(entry.Message)
	return c.Core.Write(entry, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	copy(out, fields)
	for i := range out {
		if out[i].Type == zapcore.StringType {
			out[i].String = Redact(out[i].String)
		}
	}
	return out
}
