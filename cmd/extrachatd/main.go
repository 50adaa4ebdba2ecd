package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/extrachat/server/internal/config"
	"github.com/extrachat/server/internal/console"
	"github.com/extrachat/server/internal/data"
	"github.com/extrachat/server/internal/handler"
	"github.com/extrachat/server/internal/influx"
	"github.com/extrachat/server/internal/lodestone"
	"github.com/extrachat/server/internal/logging"
	gonet "github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/persist"
	"github.com/extrachat/server/internal/registry"
	"github.com/extrachat/server/internal/updater"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           ExtraChat Server  v1.0          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      end-to-end encrypted FFXIV chat      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config.toml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, level, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. Open SQLite and run migrations
	printSection("Database")

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()

	db, err := persist.NewDB(initCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK(fmt.Sprintf("SQLite opened (%s)", cfg.Database.Path))

	if err := persist.RunMigrations(initCtx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Create repositories
	users := persist.NewUserRepo(db)
	channels := persist.NewChannelRepo(db)
	verifications := persist.NewVerificationRepo(db)
	stats := persist.NewStatsRepo(db)

	// 5. Load static data and current counts
	printSection("Data")

	worlds, err := data.LoadWorlds()
	if err != nil {
		return fmt.Errorf("load worlds: %w", err)
	}
	printStat("Worlds", worlds.Count())

	userCount, err := stats.Users(initCtx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	printStat("Users", int(userCount))

	channelCount, err := stats.Channels(initCtx)
	if err != nil {
		return fmt.Errorf("count channels: %w", err)
	}
	printStat("Linkshells", int(channelCount))
	fmt.Println()

	// 6. Connection registry, Lodestone client, background updater
	reg := registry.New()
	lode := lodestone.NewClient(lodestone.DefaultBaseURL)
	upd := updater.New(users, reg, worlds, lode, log)

	deps := &handler.Deps{
		Users:         users,
		Channels:      channels,
		Verifications: verifications,
		Registry:      reg,
		Worlds:        worlds,
		Lodestone:     lode,
		Updater:       upd,
		Log:           log,
	}

	// 7. Websocket server
	srv, err := gonet.NewServer(cfg.Server.Address, handler.NewMux(deps), log)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	// 8. Run everything until a signal or a console quit.
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-shutdownCh:
			log.Info("received shutdown signal", zap.String("signal", sig.String()))
			stop()
		case <-runCtx.Done():
		}
	}()

	g, ctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return srv.Serve(ctx) })
	g.Go(func() error { return upd.Run(ctx) })
	if cfg.Influx != nil {
		pusher := influx.New(*cfg.Influx, reg, stats, log)
		g.Go(func() error { return pusher.Run(ctx) })
	}
	g.Go(func() error { return console.New(reg, level, stop, log).Run(ctx) })
	g.Go(func() error {
		// Status line once a minute.
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		var last uint64
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				sent := reg.MessagesSent()
				log.Info(fmt.Sprintf("Clients: %d, messages sent: %d (+%d)", reg.Len(), sent, sent-last))
				last = sent
			}
		}
	})

	printReady(fmt.Sprintf("Listening on ws://%s/", srv.Addr()))
	fmt.Println()
	log.Info(fmt.Sprintf("Listening on ws://%s/", srv.Addr()))

	err = g.Wait()
	log.Info("quitting")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
