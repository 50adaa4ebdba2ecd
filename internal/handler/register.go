package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/extrachat/server/internal/apikey"
	"github.com/extrachat/server/internal/lodestone"
	"github.com/extrachat/server/internal/net"
	"github.com/extrachat/server/internal/protocol"
)

// challengeTTL is how long a verification challenge stays fresh before
// a new registration attempt replaces it.
const challengeTTL = 5 * time.Minute

// HandleRegister runs the two-round registration flow: the first round
// hands out a challenge string to paste into the character's Lodestone
// profile, the second scrapes the profile and, on a match, issues an
// API key.
func HandleRegister(ctx context.Context, sess *net.Session, number uint32, req *protocol.RegisterRequest, deps *Deps) error {
	worldName, ok := deps.Worlds.NameForID(req.World)
	if !ok {
		return fmt.Errorf("invalid world id %d", req.World)
	}

	found, err := searchCharacter(ctx, deps.Lodestone, req.Name, worldName)
	if err != nil {
		return err
	}
	if found == nil {
		return sess.Reply(number, protocol.NewError(nil, "could not find character"))
	}

	challenge, err := deps.Verifications.Get(ctx, found.ID)
	if err != nil {
		return fmt.Errorf("could not query database for verification: %w", err)
	}

	if !req.ChallengeCompleted || challenge == nil {
		generate := challenge == nil || time.Since(challenge.CreatedAt) > challengeTTL
		text := ""
		if generate {
			var raw [32]byte
			if _, err := rand.Read(raw[:]); err != nil {
				return fmt.Errorf("could not generate challenge: %w", err)
			}
			text = hex.EncodeToString(raw[:])
			if err := deps.Verifications.Upsert(ctx, found.ID, text); err != nil {
				return err
			}
		} else {
			text = challenge.Challenge
		}

		return sess.Reply(number, &protocol.RegisterResponse{
			Status:    protocol.RegisterChallenge,
			Challenge: text,
		})
	}

	info, err := deps.Lodestone.Character(ctx, found.ID)
	if err != nil {
		return fmt.Errorf("could not get character info: %w", err)
	}
	if !strings.Contains(info.ProfileText, challenge.Challenge) {
		return sess.Reply(number, &protocol.RegisterResponse{Status: protocol.RegisterFailure})
	}

	if err := deps.Verifications.Delete(ctx, found.ID); err != nil {
		return fmt.Errorf("could not remove verification: %w", err)
	}

	key, err := apikey.Generate()
	if err != nil {
		return err
	}
	if err := deps.Users.Upsert(ctx, found.ID, found.Name, found.World, key.ShortToken, key.Hash()); err != nil {
		return fmt.Errorf("could not insert user: %w", err)
	}

	return sess.Reply(number, &protocol.RegisterResponse{
		Status: protocol.RegisterSuccess,
		Key:    key.String(),
	})
}

// searchCharacter pages through Lodestone search results until it
// finds an exact name and world match. Returns nil when the search is
// exhausted.
func searchCharacter(ctx context.Context, client *lodestone.Client, name, world string) (*lodestone.SearchResult, error) {
	for page := 1; ; page++ {
		search, err := client.Search(ctx, name, world, page)
		if err != nil {
			return nil, err
		}
		for _, result := range search.Results {
			if result.Name == name && result.World == world {
				return &result, nil
			}
		}
		if page >= search.TotalPages {
			return nil, nil
		}
	}
}
