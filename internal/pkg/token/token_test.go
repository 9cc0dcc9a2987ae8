package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mailwarden/core/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]bool
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		data: make(map[string]string),
		sets: make(map[string]map[string]bool),
		ttls: make(map[string]time.Duration),
	}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
		delete(s.sets, k)
	}
	return nil
}

func (s *memStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[key]
	if set == nil {
		set = make(map[string]bool)
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = true
	}
	return nil
}

func (s *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		delete(s.sets[key], m)
	}
	return nil
}

func (s *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) ttl(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

var issuedAt = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestManager() *Manager {
	return NewManager(newMemStore(), clock.Fixed(issuedAt), time.Hour)
}

func TestIssueAndLookup(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager()

	tok, rec, err := mgr.Issue(ctx, "acc-1", "dev-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok, "mwd"))
	assert.Len(t, tok, 43)
	assert.Equal(t, "acc-1", rec.AccountID)
	assert.Equal(t, "dev-1", rec.DeviceID)
	assert.Equal(t, issuedAt, rec.IssuedAt)

	got, err := mgr.Lookup(ctx, tok)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *rec, *got)
}

func TestIssueBoundsAccountIndexLifetime(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mgr := NewManager(store, clock.Fixed(issuedAt), time.Hour)

	_, _, err := mgr.Issue(ctx, "acc-1", "dev-1")
	require.NoError(t, err)

	// The per-account index set expires with the token it tracks, so a
	// dormant account does not hold its set open forever.
	assert.Equal(t, time.Hour, store.ttl(keyAccount+"acc-1"))
}

func TestLookupUnknown(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager()

	got, err := mgr.Lookup(ctx, "mwdnope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = mgr.Lookup(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager()

	tok, _, err := mgr.Issue(ctx, "acc-1", "dev-1")
	require.NoError(t, err)

	found, err := mgr.Revoke(ctx, tok)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := mgr.Lookup(ctx, tok)
	require.NoError(t, err)
	assert.Nil(t, got)

	found, err = mgr.Revoke(ctx, tok)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRevokeAccount(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager()

	tok1, _, err := mgr.Issue(ctx, "acc-1", "dev-1")
	require.NoError(t, err)
	tok2, _, err := mgr.Issue(ctx, "acc-1", "dev-1")
	require.NoError(t, err)
	other, _, err := mgr.Issue(ctx, "acc-2", "dev-9")
	require.NoError(t, err)

	require.NoError(t, mgr.RevokeAccount(ctx, "acc-1"))

	for _, tok := range []string{tok1, tok2} {
		got, err := mgr.Lookup(ctx, tok)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	// Other accounts keep their tokens.
	got, err := mgr.Lookup(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "acc-2", got.AccountID)
}

func TestRevokeAccountWithoutTokens(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager()
	assert.NoError(t, mgr.RevokeAccount(ctx, "acc-none"))
}
