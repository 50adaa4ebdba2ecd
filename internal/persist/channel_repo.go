package persist

import (
	"context"
	"database/sql"
	"errors"
)

// ChannelRow represents a linkshell. The name is ciphertext chosen by
// the creator and never interpreted server-side.
type ChannelRow struct {
	ID   string
	Name []byte
}

// RawMember is a membership row joined with the user table, before
// world names are mapped to ids.
type RawMember struct {
	LodestoneID uint64
	Name        string
	World       string
	Rank        uint8
}

// SimpleChannelRow is a channel joined with the caller's rank in it.
type SimpleChannelRow struct {
	ID   string
	Name []byte
	Rank uint8
}

type ChannelRepo struct {
	db *DB
}

func NewChannelRepo(db *DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

func (r *ChannelRepo) Create(ctx context.Context, id string, name []byte) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO channels (id, name) VALUES (?, ?)`, id, name,
	)
	return err
}

func (r *ChannelRepo) Get(ctx context.Context, id string) (*ChannelRow, error) {
	row := &ChannelRow{}
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT id, name FROM channels WHERE id = ?`, id,
	).Scan(&row.ID, &row.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes a channel; memberships and invites cascade.
func (r *ChannelRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM channels WHERE id = ?`, id,
	)
	return err
}

func (r *ChannelRepo) Rename(ctx context.Context, id string, name []byte) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE channels SET name = ? WHERE id = ?`, name, id,
	)
	return err
}

func (r *ChannelRepo) AddMember(ctx context.Context, id string, lodestoneID uint64, rank uint8) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO user_channels (lodestone_id, channel_id, rank) VALUES (?, ?, ?)`,
		int64(lodestoneID), id, rank,
	)
	return err
}

func (r *ChannelRepo) RemoveMember(ctx context.Context, id string, lodestoneID uint64) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM user_channels WHERE channel_id = ? AND lodestone_id = ?`,
		id, int64(lodestoneID),
	)
	return err
}

func (r *ChannelRepo) SetRank(ctx context.Context, id string, lodestoneID uint64, rank uint8) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`UPDATE user_channels SET rank = ? WHERE channel_id = ? AND lodestone_id = ?`,
		rank, id, int64(lodestoneID),
	)
	return err
}

// Rank returns the caller's rank in a channel. The second return is
// false when no membership row exists.
func (r *ChannelRepo) Rank(ctx context.Context, id string, lodestoneID uint64) (uint8, bool, error) {
	var rank uint8
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT rank FROM user_channels WHERE channel_id = ? AND lodestone_id = ?`,
		id, int64(lodestoneID),
	).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (r *ChannelRepo) IsMember(ctx context.Context, id string, lodestoneID uint64) (bool, error) {
	var count int64
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_channels WHERE channel_id = ? AND lodestone_id = ?`,
		id, int64(lodestoneID),
	).Scan(&count)
	return count > 0, err
}

func (r *ChannelRepo) MemberCount(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_channels WHERE channel_id = ?`, id,
	).Scan(&count)
	return count, err
}

// MembershipCount counts how many channels a user belongs to.
func (r *ChannelRepo) MembershipCount(ctx context.Context, lodestoneID uint64) (int64, error) {
	var count int64
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_channels WHERE lodestone_id = ?`, int64(lodestoneID),
	).Scan(&count)
	return count, err
}

// MemberIDs returns the identities of all full members of a channel.
func (r *ChannelRepo) MemberIDs(ctx context.Context, id string) ([]uint64, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT lodestone_id FROM user_channels WHERE channel_id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// RawMembers returns all full members of a channel with their ranks.
func (r *ChannelRepo) RawMembers(ctx context.Context, id string) ([]RawMember, error) {
	return r.rawMembers(ctx,
		`SELECT users.lodestone_id, users.name, users.world, user_channels.rank
		 FROM user_channels
		 INNER JOIN users ON users.lodestone_id = user_channels.lodestone_id
		 WHERE user_channels.channel_id = ?`, id)
}

// RawInvitedMembers returns pending invitees of a channel with rank 0.
func (r *ChannelRepo) RawInvitedMembers(ctx context.Context, id string) ([]RawMember, error) {
	return r.rawMembers(ctx,
		`SELECT users.lodestone_id, users.name, users.world, CAST(0 AS INT) AS rank
		 FROM channel_invites
		 INNER JOIN users ON users.lodestone_id = channel_invites.invited
		 WHERE channel_invites.channel_id = ?`, id)
}

func (r *ChannelRepo) rawMembers(ctx context.Context, query, id string) ([]RawMember, error) {
	rows, err := r.db.SQL.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RawMember
	for rows.Next() {
		var m RawMember
		if err := rows.Scan(&m.LodestoneID, &m.Name, &m.World, &m.Rank); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// IDsForUser returns the ids of every channel the user is a member of.
func (r *ChannelRepo) IDsForUser(ctx context.Context, lodestoneID uint64) ([]string, error) {
	return r.ids(ctx,
		`SELECT channel_id FROM user_channels WHERE lodestone_id = ?`, lodestoneID)
}

// InviteIDsForUser returns the ids of every channel the user has a
// pending invite to.
func (r *ChannelRepo) InviteIDsForUser(ctx context.Context, lodestoneID uint64) ([]string, error) {
	return r.ids(ctx,
		`SELECT channel_id FROM channel_invites WHERE invited = ?`, lodestoneID)
}

func (r *ChannelRepo) ids(ctx context.Context, query string, lodestoneID uint64) ([]string, error) {
	rows, err := r.db.SQL.QueryContext(ctx, query, int64(lodestoneID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// SimpleForUser returns every channel the user is a member of along
// with their rank in it.
func (r *ChannelRepo) SimpleForUser(ctx context.Context, lodestoneID uint64) ([]SimpleChannelRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT channels.id, channels.name, user_channels.rank
		 FROM user_channels
		 INNER JOIN channels ON user_channels.channel_id = channels.id
		 WHERE user_channels.lodestone_id = ?`, int64(lodestoneID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SimpleChannelRow
	for rows.Next() {
		var c SimpleChannelRow
		if err := rows.Scan(&c.ID, &c.Name, &c.Rank); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// InvitedForUser returns every channel the user has a pending invite to.
func (r *ChannelRepo) InvitedForUser(ctx context.Context, lodestoneID uint64) ([]ChannelRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT channels.id, channels.name
		 FROM channel_invites
		 INNER JOIN channels ON channel_invites.channel_id = channels.id
		 WHERE channel_invites.invited = ?`, int64(lodestoneID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ChannelRow
	for rows.Next() {
		var c ChannelRow
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *ChannelRepo) AddInvite(ctx context.Context, id string, invited, inviter uint64) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO channel_invites (channel_id, invited, inviter) VALUES (?, ?, ?)`,
		id, int64(invited), int64(inviter),
	)
	return err
}

// DeleteInvite removes a pending invite and reports whether one
// existed.
func (r *ChannelRepo) DeleteInvite(ctx context.Context, id string, invited uint64) (bool, error) {
	res, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM channel_invites WHERE channel_id = ? AND invited = ?`,
		id, int64(invited),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ChannelRepo) IsInvited(ctx context.Context, id string, invited uint64) (bool, error) {
	var count int64
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channel_invites WHERE channel_id = ? AND invited = ?`,
		id, int64(invited),
	).Scan(&count)
	return count > 0, err
}
