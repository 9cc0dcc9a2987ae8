// Package token stores desktop bearer tokens. Tokens are opaque random
// strings resolved by authoritative lookup, so revocation is immediate
// and needs no blacklist. The store is independent of browser sessions:
// a desktop client never logs out because an unrelated cookie expired.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/mailwarden/core/internal/pkg/clock"
)

const (
	tokenPrefix = "mwd"
	keyToken    = "mw:dtoken:"
	keyAccount  = "mw:dtokens:account:"

	// DefaultTTL bounds how long an untouched token survives.
	DefaultTTL = 30 * 24 * time.Hour
)

// Record is the server-side state behind one issued token.
type Record struct {
	AccountID string    `json:"account_id"`
	DeviceID  string    `json:"device_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Store is the keyed storage the manager runs on, with a per-account
// index set for bulk revocation. Implemented by the Redis client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Manager issues, resolves and revokes desktop tokens.
type Manager struct {
	store Store
	clk   clock.Clock
	ttl   time.Duration
}

func NewManager(store Store, clk clock.Clock, ttl time.Duration) *Manager {
	if clk == nil {
		clk = clock.System()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, clk: clk, ttl: ttl}
}

// Issue creates a token bound to the device the account authenticated
// from. Called only after every credential/entitlement/device check
// passed, so an aborted login leaves no token behind.
func (m *Manager) Issue(ctx context.Context, accountID, deviceID string) (string, *Record, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", nil, apperr.Internal(err)
	}
	tok := tokenPrefix + hex.EncodeToString(b)

	rec := &Record{
		AccountID: accountID,
		DeviceID:  deviceID,
		IssuedAt:  m.clk.Now(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	if err := m.store.Set(ctx, keyToken+tok, string(raw), m.ttl); err != nil {
		return "", nil, apperr.Internal(err)
	}
	if err := m.store.SAdd(ctx, keyAccount+accountID, tok); err != nil {
		return "", nil, apperr.Internal(err)
	}
	// The index set must not outlive its last token, or dormant
	// accounts leak sets forever.
	if err := m.store.Expire(ctx, keyAccount+accountID, m.ttl); err != nil {
		return "", nil, apperr.Internal(err)
	}
	return tok, rec, nil
}

// Lookup resolves a token. Returns (nil, nil) for unknown tokens.
func (m *Manager) Lookup(ctx context.Context, tok string) (*Record, error) {
	if tok == "" {
		return nil, nil
	}
	raw, err := m.store.Get(ctx, keyToken+tok)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if raw == "" {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		_ = m.store.Del(ctx, keyToken+tok)
		return nil, nil
	}
	return &rec, nil
}

// Revoke removes one token. Reports whether it existed. The account's
// device binding is untouched; clearing that is an admin action.
func (m *Manager) Revoke(ctx context.Context, tok string) (bool, error) {
	rec, err := m.Lookup(ctx, tok)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if err := m.store.Del(ctx, keyToken+tok); err != nil {
		return false, apperr.Internal(err)
	}
	_ = m.store.SRem(ctx, keyAccount+rec.AccountID, tok)
	return true, nil
}

// RevokeAccount removes every outstanding token for an account. Used
// by the admin device reset.
func (m *Manager) RevokeAccount(ctx context.Context, accountID string) error {
	toks, err := m.store.SMembers(ctx, keyAccount+accountID)
	if err != nil {
		return apperr.Internal(err)
	}
	keys := make([]string, 0, len(toks)+1)
	for _, t := range toks {
		keys = append(keys, keyToken+t)
	}
	keys = append(keys, keyAccount+accountID)
	if err := m.store.Del(ctx, keys...); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
