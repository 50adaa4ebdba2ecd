package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannelID = "8a43ff1864b342a89b6b23dca053b959"

func seedChannel(t *testing.T, db *DB, id string) {
	t.Helper()
	require.NoError(t, NewChannelRepo(db).Create(context.Background(), id, []byte{0xde, 0xad}))
}

func TestChannelRepoCreateGetDelete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	seedChannel(t, db, testChannelID)

	row, err := channels.Get(ctx, testChannelID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, testChannelID, row.ID)
	assert.Equal(t, []byte{0xde, 0xad}, row.Name)

	require.NoError(t, channels.Delete(ctx, testChannelID))
	row, err = channels.Get(ctx, testChannelID)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestChannelRepoRename(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	seedChannel(t, db, testChannelID)
	require.NoError(t, channels.Rename(ctx, testChannelID, []byte{1, 2, 3}))

	row, err := channels.Get(ctx, testChannelID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, []byte{1, 2, 3}, row.Name)
}

func TestChannelRepoMembership(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	seedUser(t, db, 10, "Admin Person", "Siren")
	seedUser(t, db, 11, "Member Person", "Moogle")
	seedChannel(t, db, testChannelID)

	require.NoError(t, channels.AddMember(ctx, testChannelID, 10, 3))
	require.NoError(t, channels.AddMember(ctx, testChannelID, 11, 1))

	rank, ok, err := channels.Rank(ctx, testChannelID, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(3), rank)

	_, ok, err = channels.Rank(ctx, testChannelID, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	member, err := channels.IsMember(ctx, testChannelID, 11)
	require.NoError(t, err)
	assert.True(t, member)

	count, err := channels.MemberCount(ctx, testChannelID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = channels.MembershipCount(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err := channels.MemberIDs(ctx, testChannelID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{10, 11}, ids)

	require.NoError(t, channels.SetRank(ctx, testChannelID, 11, 2))
	rank, ok, err = channels.Rank(ctx, testChannelID, 11)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint8(2), rank)

	require.NoError(t, channels.RemoveMember(ctx, testChannelID, 11))
	member, err = channels.IsMember(ctx, testChannelID, 11)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestChannelRepoRawMembers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	seedUser(t, db, 20, "Full Member", "Siren")
	seedUser(t, db, 21, "Invited Person", "Moogle")
	seedChannel(t, db, testChannelID)

	require.NoError(t, channels.AddMember(ctx, testChannelID, 20, 3))
	require.NoError(t, channels.AddInvite(ctx, testChannelID, 21, 20))

	members, err := channels.RawMembers(ctx, testChannelID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, RawMember{LodestoneID: 20, Name: "Full Member", World: "Siren", Rank: 3}, members[0])

	invited, err := channels.RawInvitedMembers(ctx, testChannelID)
	require.NoError(t, err)
	require.Len(t, invited, 1)
	assert.Equal(t, RawMember{LodestoneID: 21, Name: "Invited Person", World: "Moogle", Rank: 0}, invited[0])
}

func TestChannelRepoInvites(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	seedUser(t, db, 30, "Inviter Person", "Siren")
	seedUser(t, db, 31, "Invitee Person", "Moogle")
	seedChannel(t, db, testChannelID)

	require.NoError(t, channels.AddMember(ctx, testChannelID, 30, 3))
	require.NoError(t, channels.AddInvite(ctx, testChannelID, 31, 30))

	invited, err := channels.IsInvited(ctx, testChannelID, 31)
	require.NoError(t, err)
	assert.True(t, invited)

	removed, err := channels.DeleteInvite(ctx, testChannelID, 31)
	require.NoError(t, err)
	assert.True(t, removed)

	// Second delete finds nothing.
	removed, err = channels.DeleteInvite(ctx, testChannelID, 31)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestChannelRepoDeleteCascades(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	seedUser(t, db, 40, "Admin Person", "Siren")
	seedUser(t, db, 41, "Invited Person", "Moogle")
	seedChannel(t, db, testChannelID)

	require.NoError(t, channels.AddMember(ctx, testChannelID, 40, 3))
	require.NoError(t, channels.AddInvite(ctx, testChannelID, 41, 40))

	require.NoError(t, channels.Delete(ctx, testChannelID))

	member, err := channels.IsMember(ctx, testChannelID, 40)
	require.NoError(t, err)
	assert.False(t, member)

	invited, err := channels.IsInvited(ctx, testChannelID, 41)
	require.NoError(t, err)
	assert.False(t, invited)
}

func TestChannelRepoListQueries(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	channels := NewChannelRepo(db)
	ctx := context.Background()

	other := "11111111222233334444555555555555"
	seedUser(t, db, 50, "List Person", "Siren")
	seedUser(t, db, 51, "Other Person", "Moogle")
	seedChannel(t, db, testChannelID)
	seedChannel(t, db, other)

	require.NoError(t, channels.AddMember(ctx, testChannelID, 50, 3))
	require.NoError(t, channels.AddMember(ctx, other, 51, 3))
	require.NoError(t, channels.AddInvite(ctx, other, 50, 51))

	ids, err := channels.IDsForUser(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{testChannelID}, ids)

	inviteIDs, err := channels.InviteIDsForUser(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{other}, inviteIDs)

	simple, err := channels.SimpleForUser(ctx, 50)
	require.NoError(t, err)
	require.Len(t, simple, 1)
	assert.Equal(t, SimpleChannelRow{ID: testChannelID, Name: []byte{0xde, 0xad}, Rank: 3}, simple[0])

	invitedChans, err := channels.InvitedForUser(ctx, 50)
	require.NoError(t, err)
	require.Len(t, invitedChans, 1)
	assert.Equal(t, ChannelRow{ID: other, Name: []byte{0xde, 0xad}}, invitedChans[0])
}
