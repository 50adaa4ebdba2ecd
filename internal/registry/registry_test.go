package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

func loggedInSession(id uint64, name, world string, worldID uint16) *net.Session {
	sess := net.NewSession(nil, id, zap.NewNop())
	sess.SetIdentity(net.User{
		LodestoneID: id,
		Name:        name,
		World:       world,
		WorldID:     worldID,
	}, []byte{1}, true)
	return sess
}

func TestRegistryInstallAndLookup(t *testing.T) {
	reg := New()
	sess := loggedInSession(123, "Haurchefant Greystone", "Coeurl", 37)

	old := reg.Install(123, IDKey{Name: "Haurchefant Greystone", World: 37}, sess)
	require.Nil(t, old)

	require.Same(t, sess, reg.Get(123))
	require.Nil(t, reg.Get(456))

	id, ok := reg.IDFor(IDKey{Name: "Haurchefant Greystone", World: 37})
	require.True(t, ok)
	require.Equal(t, uint64(123), id)

	_, ok = reg.IDFor(IDKey{Name: "Haurchefant Greystone", World: 99})
	require.False(t, ok)

	require.Equal(t, 1, reg.Len())
}

func TestRegistryInstallEvictsPrevious(t *testing.T) {
	reg := New()
	key := IDKey{Name: "Haurchefant Greystone", World: 37}
	loser := loggedInSession(123, "Haurchefant Greystone", "Coeurl", 37)
	winner := loggedInSession(123, "Haurchefant Greystone", "Coeurl", 37)

	require.Nil(t, reg.Install(123, key, loser))

	old := reg.Install(123, key, winner)
	require.Same(t, loser, old)
	require.Same(t, winner, reg.Get(123))

	// The loser's cleanup runs after its identity was cleared and must
	// leave the winner installed.
	old.ClearIdentity()
	reg.Remove(old)
	require.Same(t, winner, reg.Get(123))

	id, ok := reg.IDFor(key)
	require.True(t, ok)
	require.Equal(t, uint64(123), id)
}

func TestRegistryRemoveOnlyWhenHolder(t *testing.T) {
	reg := New()
	key := IDKey{Name: "Haurchefant Greystone", World: 37}
	loser := loggedInSession(123, "Haurchefant Greystone", "Coeurl", 37)
	winner := loggedInSession(123, "Haurchefant Greystone", "Coeurl", 37)

	reg.Install(123, key, loser)
	reg.Install(123, key, winner)

	// Even with its identity still attached, the loser cannot evict the
	// winner from the maps.
	reg.Remove(loser)
	require.Same(t, winner, reg.Get(123))
	_, ok := reg.IDFor(key)
	require.True(t, ok)

	reg.Remove(winner)
	require.Nil(t, reg.Get(123))
	_, ok = reg.IDFor(key)
	require.False(t, ok)
	require.Equal(t, 0, reg.Len())
}

func TestRegistryRemoveLoggedOut(t *testing.T) {
	reg := New()
	sess := net.NewSession(nil, 1, zap.NewNop())
	reg.Remove(sess)
	require.Equal(t, 0, reg.Len())
}

func TestRegistryRename(t *testing.T) {
	reg := New()
	oldKey := IDKey{Name: "Haurchefant Greystone", World: 37}
	newKey := IDKey{Name: "Haurchefant Greystone", World: 63}
	sess := loggedInSession(123, "Haurchefant Greystone", "Coeurl", 37)

	reg.Install(123, oldKey, sess)
	reg.Rename(123, oldKey, newKey)

	_, ok := reg.IDFor(oldKey)
	require.False(t, ok)
	id, ok := reg.IDFor(newKey)
	require.True(t, ok)
	require.Equal(t, uint64(123), id)

	// Renaming someone who is not online changes nothing.
	offlineKey := IDKey{Name: "Alphinaud Leveilleur", World: 37}
	reg.Rename(456, offlineKey, IDKey{Name: "Alphinaud Leveilleur", World: 63})
	_, ok = reg.IDFor(IDKey{Name: "Alphinaud Leveilleur", World: 63})
	require.False(t, ok)
}

func TestRegistrySecretsRequests(t *testing.T) {
	reg := New()
	reqID := protocol.NewUUID()
	channel := protocol.NewUUID()
	info := SecretsRequestInfo{Requester: 123, Channel: channel, Number: 9}

	_, ok := reg.SecretsRequest(reqID)
	require.False(t, ok)

	reg.AddSecretsRequest(reqID, info)

	// Lookup does not consume the request.
	got, ok := reg.SecretsRequest(reqID)
	require.True(t, ok)
	require.Equal(t, info, got)
	_, ok = reg.SecretsRequest(reqID)
	require.True(t, ok)

	reg.RemoveSecretsRequest(reqID)
	_, ok = reg.SecretsRequest(reqID)
	require.False(t, ok)
}

func TestRegistryAnnounce(t *testing.T) {
	reg := New()
	a := loggedInSession(1, "Haurchefant Greystone", "Coeurl", 37)
	b := loggedInSession(2, "Alphinaud Leveilleur", "Coeurl", 37)
	reg.Install(1, IDKey{Name: "Haurchefant Greystone", World: 37}, a)
	reg.Install(2, IDKey{Name: "Alphinaud Leveilleur", World: 37}, b)

	require.Equal(t, 2, reg.Announce("maintenance in ten minutes"))

	// A session with a full queue drops the announcement instead of
	// blocking the caller.
	for b.TrySend(&protocol.ResponseContainer{Number: 0, Kind: &protocol.PingResponse{}}) {
	}
	require.Equal(t, 1, reg.Announce("maintenance in five minutes"))
}

func TestRegistryMessagesSent(t *testing.T) {
	reg := New()
	require.Zero(t, reg.MessagesSent())
	reg.AddMessagesSent(2)
	reg.AddMessagesSent(3)
	require.Equal(t, uint64(5), reg.MessagesSent())
}
