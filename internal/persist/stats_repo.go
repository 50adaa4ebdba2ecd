package persist

import "context"

// StatsRepo serves the periodic telemetry counts.
type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Users(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

// UsersInChannels counts users belonging to at least one channel.
func (r *StatsRepo) UsersInChannels(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(DISTINCT lodestone_id) FROM user_channels`)
}

func (r *StatsRepo) Channels(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM channels`)
}

func (r *StatsRepo) Invites(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM channel_invites`)
}

func (r *StatsRepo) count(ctx context.Context, query string) (int64, error) {
	var count int64
	err := r.db.SQL.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
