package persist

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// VerificationRow is an outstanding registration challenge.
type VerificationRow struct {
	LodestoneID uint64
	Challenge   string
	CreatedAt   time.Time
}

type VerificationRepo struct {
	db *DB
}

func NewVerificationRepo(db *DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) Get(ctx context.Context, lodestoneID uint64) (*VerificationRow, error) {
	row := &VerificationRow{}
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT lodestone_id, challenge, created_at FROM verifications WHERE lodestone_id = ?`,
		int64(lodestoneID),
	).Scan(&row.LodestoneID, &row.Challenge, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Upsert stores a challenge, resetting the creation time on rotation.
func (r *VerificationRepo) Upsert(ctx context.Context, lodestoneID uint64, challenge string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO verifications (lodestone_id, challenge)
		 VALUES (?, ?)
		 ON CONFLICT (lodestone_id) DO UPDATE SET challenge  = excluded.challenge,
		                                          created_at = CURRENT_TIMESTAMP`,
		int64(lodestoneID), challenge,
	)
	return err
}

func (r *VerificationRepo) Delete(ctx context.Context, lodestoneID uint64) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM verifications WHERE lodestone_id = ?`, int64(lodestoneID),
	)
	return err
}
