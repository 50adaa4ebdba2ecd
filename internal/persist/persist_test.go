package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/extrachat/server/internal/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "extrachat.db")}
	db, err := NewDB(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(context.Background(), db))
	return db
}

func seedUser(t *testing.T, db *DB, id uint64, name, world string) {
	t.Helper()
	users := NewUserRepo(db)
	require.NoError(t, users.Upsert(context.Background(), id, name, world, "short"+name, "hash"+name))
}

func TestMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))
}

func TestForeignKeysEnforced(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)

	// Membership rows reference both users and channels.
	err := channels.AddMember(context.Background(), "00000000000000000000000000000000", 1, 1)
	require.Error(t, err)
}
