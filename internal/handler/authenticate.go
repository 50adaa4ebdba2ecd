package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/extrachat/server/internal/apikey"
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
	"github.com/extrachat/server/internal/registry"
)

// staleAfter is how old a user row may get before authentication
// schedules a Lodestone refresh for it.
const staleAfter = 2 * time.Hour

// HandleAuthenticate logs a session in with an API key. A second login
// for the same character evicts the first: the old session loses its
// identity and is told to disconnect.
func HandleAuthenticate(ctx context.Context, sess *net.Session, number uint32, req *protocol.AuthenticateRequest, deps *Deps) error {
	if sess.LoggedIn() {
		return sess.Reply(number, protocol.AuthenticateError("already logged in"))
	}

	key, err := apikey.Parse(req.Key)
	if err != nil {
		return err
	}

	user, err := deps.Users.ByKey(ctx, key.ShortToken, key.Hash())
	if err != nil {
		return err
	}
	if user == nil {
		return sess.Reply(number, protocol.AuthenticateError("invalid key"))
	}

	if time.Since(user.LastUpdated) >= staleAfter {
		deps.Updater.Enqueue(user.LodestoneID)
	}

	worldID, ok := deps.Worlds.IDForName(user.World)
	if !ok {
		return fmt.Errorf("user %d has invalid world %q in database", user.LodestoneID, user.World)
	}

	sess.SetIdentity(net.User{
		LodestoneID: user.LodestoneID,
		Name:        user.Name,
		World:       user.World,
		WorldID:     worldID,
	}, req.PK, req.AllowInvites)

	old := deps.Registry.Install(user.LodestoneID, registry.IDKey{Name: user.Name, World: worldID}, sess)
	if old != nil {
		old.ClearIdentity()
		old.Shutdown()
	}

	return sess.Reply(number, protocol.AuthenticateOK())
}
