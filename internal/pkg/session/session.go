// Package session manages server-side browser sessions keyed by an
// opaque random identifier. The server is the sole authority on
// validity: nothing in the cookie is trusted beyond the identifier.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/mailwarden/core/internal/pkg/audit"
	"github.com/mailwarden/core/internal/pkg/clock"
)

const (
	keyPrefix = "mw:session:"

	// DefaultIdleTTL is the idle timeout after which a session lapses.
	DefaultIdleTTL = 12 * time.Hour
	// DefaultRotateEvery bounds how long one identifier stays valid
	// while the session is in active use.
	DefaultRotateEvery = 2 * time.Hour
)

// ErrInvalid is returned whenever a session identifier cannot be
// resolved to a live, entitled session.
var ErrInvalid = apperr.New(apperr.KindUnauthenticated, "invalid_session", "session is invalid or expired")

// PackageSnapshot is the subscription summary carried by standard
// identities.
type PackageSnapshot struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	EmailCredits     int    `json:"emailCredits"`
	ConcurrencyLimit int    `json:"concurrencyLimit"`
}

// Identity is the authenticated account summary stored in the session.
// Package and PackageEnd are set for standard accounts only.
type Identity struct {
	AccountID  string           `json:"account_id"`
	Username   string           `json:"username"`
	Email      string           `json:"email"`
	Role       string           `json:"role"`
	IsActive   bool             `json:"is_active"`
	Package    *PackageSnapshot `json:"package,omitempty"`
	PackageEnd *time.Time       `json:"package_end,omitempty"`
}

// Payload is the full server-side session state.
type Payload struct {
	Identity  Identity  `json:"identity"`
	CSRFToken string    `json:"csrf_token"`
	CreatedAt time.Time `json:"created_at"`
	RotatedAt time.Time `json:"rotated_at"`
}

// Store is the keyed storage the manager runs on. Implemented by the
// Redis client; tests use an in-memory fake.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Rename must atomically retire the old key as the new one becomes
	// valid, with no window where both resolve.
	Rename(ctx context.Context, oldKey, newKey string) error
}

// RevalidateFunc refreshes a cached identity from the authoritative
// account record. A typed Unauthenticated/Forbidden/NotFound error
// means the account may no longer hold a session.
type RevalidateFunc func(ctx context.Context, cur Identity) (Identity, error)

// Manager owns the session lifecycle.
type Manager struct {
	store       Store
	revalidate  RevalidateFunc
	aud         *audit.Logger
	clk         clock.Clock
	idleTTL     time.Duration
	rotateEvery time.Duration
}

func NewManager(store Store, revalidate RevalidateFunc, aud *audit.Logger, clk clock.Clock, idleTTL, rotateEvery time.Duration) *Manager {
	if clk == nil {
		clk = clock.System()
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if rotateEvery <= 0 {
		rotateEvery = DefaultRotateEvery
	}
	return &Manager{
		store:       store,
		revalidate:  revalidate,
		aud:         aud,
		clk:         clk,
		idleTTL:     idleTTL,
		rotateEvery: rotateEvery,
	}
}

// Establish allocates a fresh session for an already-authenticated
// identity. Callers run every credential/entitlement/device check
// before this point, never after.
func (m *Manager) Establish(ctx context.Context, id Identity) (string, *Payload, error) {
	sid, err := newID()
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	csrf, err := newID()
	if err != nil {
		return "", nil, apperr.Internal(err)
	}

	now := m.clk.Now()
	p := &Payload{
		Identity:  id,
		CSRFToken: csrf,
		CreatedAt: now,
		RotatedAt: now,
	}
	if err := m.write(ctx, sid, p); err != nil {
		return "", nil, err
	}
	return sid, p, nil
}

// Regenerate swaps the identifier under a live session, carrying the
// payload and anti-forgery token forward. Used on login to defeat
// fixation, and periodically by LoadAndValidate.
func (m *Manager) Regenerate(ctx context.Context, sid string) (string, error) {
	newSID, err := newID()
	if err != nil {
		return "", apperr.Internal(err)
	}
	if err := m.store.Rename(ctx, keyPrefix+sid, keyPrefix+newSID); err != nil {
		// Rename fails only when the old key is gone.
		return "", ErrInvalid
	}

	raw, err := m.store.Get(ctx, keyPrefix+newSID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if raw == "" {
		return "", ErrInvalid
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		_ = m.store.Del(ctx, keyPrefix+newSID)
		return "", ErrInvalid
	}
	p.RotatedAt = m.clk.Now()
	if err := m.write(ctx, newSID, &p); err != nil {
		return "", err
	}
	return newSID, nil
}

// Destroy invalidates a session immediately.
func (m *Manager) Destroy(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return m.store.Del(ctx, keyPrefix+sid)
}

// LoadAndValidate resolves a session for an authenticated request. It
// re-reads the authoritative account record through the revalidator,
// destroys the session outright on any entitlement violation, rotates
// identifiers past their rotation age and refreshes the idle TTL. The
// returned identifier differs from sid after a rotation.
func (m *Manager) LoadAndValidate(ctx context.Context, sid string) (*Payload, string, error) {
	if sid == "" {
		return nil, "", ErrInvalid
	}
	raw, err := m.store.Get(ctx, keyPrefix+sid)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	if raw == "" {
		return nil, "", ErrInvalid
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		_ = m.Destroy(ctx, sid)
		return nil, "", ErrInvalid
	}

	if m.revalidate != nil {
		identity, err := m.revalidate(ctx, p.Identity)
		if err != nil {
			switch apperr.KindOf(err) {
			case apperr.KindUnauthenticated, apperr.KindForbidden, apperr.KindNotFound:
				_ = m.Destroy(ctx, sid)
				m.aud.SessionDestroyed(p.Identity.AccountID, apperr.ReasonOf(err))
				return nil, "", err
			default:
				return nil, "", err
			}
		}
		p.Identity = identity
	}

	cur := sid
	now := m.clk.Now()
	if now.Sub(p.RotatedAt) >= m.rotateEvery {
		newSID, err := newID()
		if err != nil {
			return nil, "", apperr.Internal(err)
		}
		if err := m.store.Rename(ctx, keyPrefix+sid, keyPrefix+newSID); err != nil {
			return nil, "", ErrInvalid
		}
		cur = newSID
		p.RotatedAt = now
	}

	if err := m.write(ctx, cur, &p); err != nil {
		return nil, "", err
	}
	return &p, cur, nil
}

func (m *Manager) write(ctx context.Context, sid string, p *Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := m.store.Set(ctx, keyPrefix+sid, string(raw), m.idleTTL); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
