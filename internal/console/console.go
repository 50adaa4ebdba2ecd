// Package console reads admin commands from standard input.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/extrachat/server/internal/registry"
)

// Console is the operator's command line: announcements, runtime log
// level changes and clean shutdown.
type Console struct {
	in    io.Reader
	out   io.Writer
	reg   *registry.Registry
	level zap.AtomicLevel
	quit  func()
	log   *zap.Logger
}

func New(reg *registry.Registry, level zap.AtomicLevel, quit func(), log *zap.Logger) *Console {
	return &Console{
		in:    os.Stdin,
		out:   os.Stdout,
		reg:   reg,
		level: level,
		quit:  quit,
		log:   log,
	}
}

// Run prompts and executes commands until exit, end of input, or
// context end. Closing stdin stops the console without stopping the
// server.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for {
			fmt.Fprint(c.out, "> ")
			if !sc.Scan() {
				return
			}
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if c.handle(line) {
				c.quit()
				return nil
			}
		}
	}
}

// handle runs one command line. Returns true when the server should
// shut down.
func (c *Console) handle(line string) bool {
	parts := strings.SplitN(line, " ", 2)
	switch parts[0] {
	case "exit", "quit":
		return true

	case "announce":
		if len(parts) == 2 {
			c.reg.Announce(parts[1])
		} else {
			c.log.Info("usage: announce <message>")
		}

	case "log", "level":
		if len(parts) == 2 {
			if lvl, err := zapcore.ParseLevel(parts[1]); err == nil {
				c.level.SetLevel(lvl)
			} else {
				c.log.Warn("invalid log level")
			}
		} else {
			c.log.Info("usage: log <trace|debug|info|warn|error>")
		}

	case "":

	default:
		c.log.Warn(fmt.Sprintf("unknown command: %s", parts[0]))
	}
	return false
}
