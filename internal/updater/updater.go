// Package updater keeps character names and worlds in sync with the
// Lodestone. Profiles go stale two hours after their last refresh;
// authentication posts stale identities here, and a periodic sweep
// catches users who stay logged in past the threshold.
package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/extrachat/server/internal/data"
	"github.com/extrachat/server/internal/lodestone"
	"github.com/extrachat/server/internal/persist"
	"github.com/extrachat/server/internal/registry"
)

// sweepInterval is how often the stale-user scan runs.
const sweepInterval = time.Minute

// fetchSpacing is the minimum gap between Lodestone fetches.
const fetchSpacing = 5 * time.Second

type Updater struct {
	users   *persist.UserRepo
	reg     *registry.Registry
	worlds  *data.WorldTable
	client  *lodestone.Client
	limiter *rate.Limiter
	log     *zap.Logger

	mu     sync.Mutex
	queue  []uint64
	queued map[uint64]struct{}
	wake   chan struct{}
}

func New(users *persist.UserRepo, reg *registry.Registry, worlds *data.WorldTable, client *lodestone.Client, log *zap.Logger) *Updater {
	return &Updater{
		users:   users,
		reg:     reg,
		worlds:  worlds,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(fetchSpacing), 1),
		log:     log,
		queued:  make(map[uint64]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue posts a lodestone id to the refresh inbox. Never blocks; an
// id already waiting is not queued twice.
func (u *Updater) Enqueue(id uint64) {
	u.mu.Lock()
	if _, ok := u.queued[id]; ok {
		u.mu.Unlock()
		return
	}
	u.queued[id] = struct{}{}
	u.queue = append(u.queue, id)
	u.mu.Unlock()

	select {
	case u.wake <- struct{}{}:
	default:
	}
}

func (u *Updater) pop() (uint64, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.queue) == 0 {
		return 0, false
	}
	id := u.queue[0]
	u.queue = u.queue[1:]
	delete(u.queued, id)
	return id, true
}

// Run drains the inbox until ctx is cancelled.
func (u *Updater) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.sweep(ctx)
		case <-u.wake:
			u.drain(ctx)
		}
	}
}

// sweep queues every user whose profile has gone stale.
func (u *Updater) sweep(ctx context.Context) {
	rows, err := u.users.Stale(ctx)
	if err != nil {
		u.log.Error("error updating users", zap.Error(err))
		return
	}
	for _, row := range rows {
		u.Enqueue(row.LodestoneID)
	}
}

func (u *Updater) drain(ctx context.Context) {
	var done, ok int
	for {
		id, popOK := u.pop()
		if !popOK {
			break
		}
		if err := u.limiter.Wait(ctx); err != nil {
			return
		}
		done++
		if err := u.refresh(ctx, id); err != nil {
			u.log.Error("error updating user", zap.Uint64("lodestone_id", id), zap.Error(err))
			continue
		}
		ok++
	}
	if done > 0 {
		u.log.Info(fmt.Sprintf("Updated %d/%d characters", ok, done))
	}
}

// refresh scrapes one profile, rewrites the user row, and renames the
// live session if the user is online.
func (u *Updater) refresh(ctx context.Context, id uint64) error {
	info, err := u.client.Character(ctx, id)
	if err != nil {
		return fmt.Errorf("could not get character info: %w", err)
	}
	worldID, found := u.worlds.IDForName(info.World)
	if !found {
		return fmt.Errorf("unknown world %q", info.World)
	}

	if err := u.users.UpdateCharacter(ctx, id, info.Name, info.World); err != nil {
		return err
	}

	sess := u.reg.Get(id)
	if sess == nil {
		return nil
	}
	user := sess.User()
	if user == nil {
		return nil
	}
	oldKey := registry.IDKey{Name: user.Name, World: user.WorldID}
	sess.SetName(info.Name, info.World, worldID)
	u.reg.Rename(id, oldKey, registry.IDKey{Name: info.Name, World: worldID})
	return nil
}
