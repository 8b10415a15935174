package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

var (
	ErrIncompleteRecord = errors.New("credential record requires access token, refresh token and user")
	ErrNoSession        = errors.New("no active session")
)

type snapshot struct {
	accessToken  string
	refreshToken string
	userJSON     string
	user         *models.User
}

func (s *snapshot) complete() bool {
	return s.accessToken != "" && s.refreshToken != "" && s.user != nil
}

var emptySnapshot = &snapshot{}

// Store is the credential record of one session. It is safe for concurrent use.
type Store struct {
	p Persistence

	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
}

// Open restores the record saved in p. A partial or undecodable record is
// deleted from p and the store starts unauthenticated.
func Open(ctx context.Context, p Persistence) (*Store, error) {
	s := &Store{p: p}
	s.current.Store(emptySnapshot)

	entries, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	snap, present := decodeSnapshot(entries)
	switch {
	case snap != nil:
		s.current.Store(snap)
	case present:
		if err := p.Delete(ctx, recordKeys...); err != nil {
			return nil, fmt.Errorf("discard partial credentials: %w", err)
		}
	}

	return s, nil
}

// decodeSnapshot returns the record held in entries, or nil with present set
// when only part of it (or a malformed user) was found.
func decodeSnapshot(entries map[string]string) (snap *snapshot, present bool) {
	access, refresh, userJSON := entries[KeyAccessToken], entries[KeyRefreshToken], entries[KeyUser]
	present = access != "" || refresh != "" || userJSON != ""
	if access == "" || refresh == "" || userJSON == "" {
		return nil, present
	}

	var u models.User
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return nil, present
	}

	return &snapshot{accessToken: access, refreshToken: refresh, userJSON: userJSON, user: &u}, present
}

// Get returns the raw persisted value for one of the record keys. The user
// entry is returned JSON-encoded.
func (s *Store) Get(key string) (string, bool) {
	snap := s.current.Load()
	var v string
	switch key {
	case KeyAccessToken:
		v = snap.accessToken
	case KeyRefreshToken:
		v = snap.refreshToken
	case KeyUser:
		v = snap.userJSON
	}
	return v, v != ""
}

func (s *Store) AccessToken() (string, bool) {
	return s.Get(KeyAccessToken)
}

func (s *Store) RefreshToken() (string, bool) {
	return s.Get(KeyRefreshToken)
}

// User returns a copy of the signed-in user snapshot.
func (s *Store) User() (*models.User, bool) {
	snap := s.current.Load()
	if snap.user == nil {
		return nil, false
	}
	u := *snap.user
	return &u, true
}

func (s *Store) Authenticated() bool {
	return s.current.Load().complete()
}

// Set replaces the whole record.
func (s *Store) Set(ctx context.Context, accessToken, refreshToken string, user models.User) error {
	if accessToken == "" || refreshToken == "" {
		return ErrIncompleteRecord
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	snap := &snapshot{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		userJSON:     string(userJSON),
		user:         &user,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = s.p.Save(ctx, map[string]string{
		KeyAccessToken:  snap.accessToken,
		KeyRefreshToken: snap.refreshToken,
		KeyUser:         snap.userJSON,
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	s.current.Store(snap)
	return nil
}

// SetAccessToken replaces only the access token. It fails with ErrNoSession
// when the record was cleared in the meantime, so a late refresh cannot
// resurrect half of a destroyed session.
func (s *Store) SetAccessToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrIncompleteRecord
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current.Load()
	if !cur.complete() {
		return ErrNoSession
	}

	if err := s.p.Save(ctx, map[string]string{KeyAccessToken: accessToken}); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}

	next := *cur
	next.accessToken = accessToken
	s.current.Store(&next)
	return nil
}

// Clear destroys the record. The in-memory view is emptied even if the
// persistence fails; that failure is returned. Clearing twice is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.current.Store(emptySnapshot)

	if err := s.p.Delete(ctx, recordKeys...); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
