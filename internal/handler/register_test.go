package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/extrachat/server/internal/apikey"
	"github.com/extrachat/server/internal/protocol"
)

// lodestoneSite fakes the two Lodestone pages registration scrapes:
// character search and the character profile.
type lodestoneSite struct {
	id    uint64
	name  string
	world string

	mu      sync.Mutex
	profile string
}

func (s *lodestoneSite) setProfile(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
}

func (s *lodestoneSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/lodestone/character/" {
		if r.URL.Query().Get("q") != s.name {
			fmt.Fprint(w, `<html><body><p class="parts__zero">Your search yielded no results.</p></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><div class="ldst__window">
  <div class="entry"><a href="/lodestone/character/%d/" class="entry__link">
    <p class="entry__name">%s</p>
    <p class="entry__world">%s&nbsp;[Crystal]</p>
  </a></div>
  <ul class="btn__pager"><li class="btn__pager__current">Page 1 of 1</li></ul>
</div></body></html>`, s.id, s.name, s.world)
		return
	}

	if r.URL.Path == fmt.Sprintf("/lodestone/character/%d/", s.id) {
		s.mu.Lock()
		profile := s.profile
		s.mu.Unlock()
		fmt.Fprintf(w, `<html><body><div class="frame__chara__box">
  <p class="frame__chara__name">%s</p>
  <p class="frame__chara__world">%s&nbsp;[Crystal]</p>
</div>
<div class="character__selfintroduction">%s</div></body></html>`, s.name, s.world, profile)
		return
	}

	http.NotFound(w, r)
}

func newRegisterEnv(t *testing.T, site *lodestoneSite) *testEnv {
	t.Helper()
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	return newTestEnvLodestone(t, srv.URL)
}

func TestRegisterFlow(t *testing.T) {
	site := &lodestoneSite{id: 9999, name: "Sidurgu Orl", world: "Coeurl", profile: "Just a dark knight."}
	env := newRegisterEnv(t, site)

	c := dial(t, env)
	n := c.send(&protocol.RegisterRequest{Name: "Sidurgu Orl", World: 74})
	resp, got := recvKind[*protocol.RegisterResponse](c)
	require.Equal(t, n, got)
	require.Equal(t, protocol.RegisterChallenge, resp.Status)
	require.Len(t, resp.Challenge, 64)
	challenge := resp.Challenge

	// Asking again inside the window hands back the same challenge.
	c.send(&protocol.RegisterRequest{Name: "Sidurgu Orl", World: 74})
	resp, _ = recvKind[*protocol.RegisterResponse](c)
	require.Equal(t, protocol.RegisterChallenge, resp.Status)
	require.Equal(t, challenge, resp.Challenge)

	// Claiming completion without editing the profile fails.
	c.send(&protocol.RegisterRequest{Name: "Sidurgu Orl", World: 74, ChallengeCompleted: true})
	resp, _ = recvKind[*protocol.RegisterResponse](c)
	require.Equal(t, protocol.RegisterFailure, resp.Status)

	// With the challenge pasted into the profile the key comes back.
	site.setProfile("Just a dark knight.\n" + challenge)
	c.send(&protocol.RegisterRequest{Name: "Sidurgu Orl", World: 74, ChallengeCompleted: true})
	resp, _ = recvKind[*protocol.RegisterResponse](c)
	require.Equal(t, protocol.RegisterSuccess, resp.Status)

	key, err := apikey.Parse(resp.Key)
	require.NoError(t, err)

	row, err := env.deps.Users.ByName(context.Background(), "Sidurgu Orl", "Coeurl")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, uint64(9999), row.LodestoneID)

	ver, err := env.deps.Verifications.Get(context.Background(), 9999)
	require.NoError(t, err)
	require.Nil(t, ver)

	login(t, env, key, []byte{1})
}

func TestRegisterUnknownCharacter(t *testing.T) {
	site := &lodestoneSite{id: 9999, name: "Sidurgu Orl", world: "Coeurl"}
	env := newRegisterEnv(t, site)

	c := dial(t, env)
	n := c.send(&protocol.RegisterRequest{Name: "Nobody Here", World: 74})
	resp, got := recvKind[*protocol.ErrorResponse](c)
	require.Equal(t, n, got)
	require.Nil(t, resp.Channel)
	require.Equal(t, "could not find character", resp.Error)
}

func TestRegisterInvalidWorldEndsSession(t *testing.T) {
	site := &lodestoneSite{id: 9999, name: "Sidurgu Orl", world: "Coeurl"}
	env := newRegisterEnv(t, site)

	c := dial(t, env)
	c.send(&protocol.RegisterRequest{Name: "Sidurgu Orl", World: 60000})
	c.expectClosed()
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	key := seedUser(t, env, 1, "Haurchefant Greystone", "Coeurl")
	seedUser(t, env, 2, "Aymeric Borel", "Coeurl")

	ch := seedChannel(t, env, "sealed")
	addMember(t, env, ch, 1, protocol.RankAdmin)

	other := seedChannel(t, env, "other")
	addMember(t, env, other, 2, protocol.RankAdmin)
	addInvite(t, env, other, 1, 2)

	a := login(t, env, key, []byte{1})

	// Memberships block deletion.
	n := a.send(&protocol.DeleteAccountRequest{})
	errResp, got := recvKind[*protocol.ErrorResponse](a)
	require.Equal(t, n, got)
	require.Nil(t, errResp.Channel)
	require.Equal(t, "leave all linkshells first", errResp.Error)

	a.send(&protocol.LeaveRequest{Channel: ch})
	recvKind[*protocol.LeaveResponse](a)

	// The pending invite dies with the account.
	n = a.send(&protocol.DeleteAccountRequest{})
	_, got = recvKind[*protocol.DeleteAccountResponse](a)
	require.Equal(t, n, got)

	row, err := env.deps.Users.ByName(context.Background(), "Haurchefant Greystone", "Coeurl")
	require.NoError(t, err)
	require.Nil(t, row)

	invited, err := env.deps.Channels.IsInvited(context.Background(), other.Simple(), 1)
	require.NoError(t, err)
	require.False(t, invited)

	// The key no longer authenticates.
	fresh := dial(t, env)
	fresh.send(&protocol.AuthenticateRequest{Key: key.String(), PK: []byte{1}, AllowInvites: true})
	auth, _ := recvKind[*protocol.AuthenticateResponse](fresh)
	require.NotNil(t, auth.Error)
	require.Equal(t, "invalid key", *auth.Error)
}
