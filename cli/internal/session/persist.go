package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// StorageKey is the default key the session is persisted under.
const StorageKey = "auth-storage"

// StorageVersion is written alongside the persisted state.
const StorageVersion = 0

// ErrNotFound is returned by a Persister when no data exists for a key.
var ErrNotFound = errors.New("session: no persisted state")

// ErrCorrupt is wrapped by a Persister whose backing data cannot be decoded.
var ErrCorrupt = errors.New("session: corrupt persisted state")

// Persister stores the encoded session blob.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

type persistedState struct {
	User            *User   `json:"user"`
	AccessToken     *string `json:"accessToken"`
	RefreshToken    *string `json:"refreshToken"`
	ExpiresIn       *int64  `json:"expiresIn"`
	IsAuthenticated bool    `json:"isAuthenticated"`
}

type persistedEnvelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

func toPersisted(s Snapshot) persistedEnvelope {
	p := persistedState{User: s.User, IsAuthenticated: s.IsAuthenticated}
	if s.AccessToken != "" {
		p.AccessToken = &s.AccessToken
	}
	if s.RefreshToken != "" {
		p.RefreshToken = &s.RefreshToken
	}
	if s.ExpiresIn != 0 {
		p.ExpiresIn = &s.ExpiresIn
	}
	return persistedEnvelope{State: p, Version: StorageVersion}
}

func encodeState(s Snapshot) ([]byte, error) {
	return json.Marshal(toPersisted(s))
}

func decodeState(data []byte) (Snapshot, error) {
	var env persistedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("decode session: %w", err)
	}

	s := Snapshot{User: env.State.User, IsAuthenticated: env.State.IsAuthenticated}
	if env.State.AccessToken != nil {
		s.AccessToken = *env.State.AccessToken
	}
	if env.State.RefreshToken != nil {
		s.RefreshToken = *env.State.RefreshToken
	}
	if env.State.ExpiresIn != nil {
		s.ExpiresIn = *env.State.ExpiresIn
	}
	return s, nil
}
