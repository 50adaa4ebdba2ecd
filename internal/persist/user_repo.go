package persist

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UserRow represents a registered character.
type UserRow struct {
	LodestoneID uint64
	Name        string
	World       string
	KeyShort    string
	KeyHash     string
	LastUpdated time.Time
}

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// ByKey looks up a user by API key shard and long-half hash.
func (r *UserRepo) ByKey(ctx context.Context, keyShort, keyHash string) (*UserRow, error) {
	return r.row(ctx,
		`SELECT lodestone_id, name, world, key_short, key_hash, last_updated
		 FROM users WHERE key_short = ? AND key_hash = ?`, keyShort, keyHash)
}

// ByName looks up a user by character name and world. Used as the
// offline fallback when the target is not connected.
func (r *UserRepo) ByName(ctx context.Context, name, world string) (*UserRow, error) {
	return r.row(ctx,
		`SELECT lodestone_id, name, world, key_short, key_hash, last_updated
		 FROM users WHERE name = ? AND world = ?`, name, world)
}

func (r *UserRepo) row(ctx context.Context, query string, args ...any) (*UserRow, error) {
	row := &UserRow{}
	err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(
		&row.LodestoneID, &row.Name, &row.World, &row.KeyShort, &row.KeyHash, &row.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Upsert stores a freshly registered user, replacing any previous key
// for the same character.
func (r *UserRepo) Upsert(ctx context.Context, lodestoneID uint64, name, world, keyShort, keyHash string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO users (lodestone_id, name, world, key_short, key_hash, last_updated)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (lodestone_id) DO UPDATE SET name         = excluded.name,
		                                          world        = excluded.world,
		                                          key_short    = excluded.key_short,
		                                          key_hash     = excluded.key_hash,
		                                          last_updated = CURRENT_TIMESTAMP`,
		int64(lodestoneID), name, world, keyShort, keyHash,
	)
	return err
}

// UpdateCharacter refreshes the name and world after a profile fetch.
func (r *UserRepo) UpdateCharacter(ctx context.Context, lodestoneID uint64, name, world string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE users SET name = ?, world = ?, last_updated = CURRENT_TIMESTAMP WHERE lodestone_id = ?`,
		name, world, int64(lodestoneID),
	)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, lodestoneID uint64) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM users WHERE lodestone_id = ?`, int64(lodestoneID),
	)
	return err
}

// Stale returns users whose profile has not been refreshed for at
// least two hours.
func (r *UserRepo) Stale(ctx context.Context) ([]UserRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT lodestone_id, name, world, key_short, key_hash, last_updated
		 FROM users WHERE (JULIANDAY(CURRENT_TIMESTAMP) - JULIANDAY(last_updated)) * 24 >= 2`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.LodestoneID, &u.Name, &u.World, &u.KeyShort, &u.KeyHash, &u.LastUpdated); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}
