package browser

import (
	"context"

	"github.com/mailwarden/core/internal/modules/account"
	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/mailwarden/core/internal/pkg/audit"
	"github.com/mailwarden/core/internal/pkg/credential"
	"github.com/mailwarden/core/internal/pkg/entitlement"
	"github.com/mailwarden/core/internal/pkg/session"
)

const channel = "browser"

var errBadCredential = apperr.New(apperr.KindUnauthenticated, "bad_credential", "invalid email or password")

// Service is the browser login flow. It shares the entitlement model
// and directory with the desktop flow but carries identity in a
// cookie-bound session instead of a bearer token.
type Service struct {
	directory *account.Service
	sessions  *session.Manager
	ent       *entitlement.Checker
	aud       *audit.Logger
}

func NewService(directory *account.Service, sessions *session.Manager, ent *entitlement.Checker, aud *audit.Logger) *Service {
	return &Service{directory: directory, sessions: sessions, ent: ent, aud: aud}
}

// Login verifies the credential and entitlement, then establishes a
// fresh session. A brand-new identifier on every login defeats session
// fixation.
func (s *Service) Login(ctx context.Context, email, password, ip string) (string, *session.Payload, error) {
	acc, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if acc == nil {
		credential.Verify(password, credential.DummyDigest)
		s.aud.LoginDenied(channel, email, "unknown_account", ip)
		return "", nil, errBadCredential
	}
	if !credential.Verify(password, acc.Password) {
		s.aud.LoginDenied(channel, email, "bad_credential", ip)
		return "", nil, errBadCredential
	}
	if !acc.IsActive {
		s.aud.LoginDenied(channel, acc.ID, "deactivated", ip)
		return "", nil, apperr.New(apperr.KindForbidden, "deactivated", "account is deactivated")
	}
	if !s.ent.IsEntitled(acc) {
		s.aud.LoginDenied(channel, acc.ID, "entitlement_expired", ip)
		return "", nil, apperr.New(apperr.KindForbidden, "entitlement_expired", "subscription has expired")
	}

	sid, payload, err := s.sessions.Establish(ctx, account.IdentityOf(acc))
	if err != nil {
		return "", nil, err
	}
	s.directory.TouchLogin(ctx, acc.ID, ip)
	s.aud.LoginOK(channel, acc.ID, ip)
	return sid, payload, nil
}

// Logout destroys the session immediately.
func (s *Service) Logout(ctx context.Context, sid string) error {
	return s.sessions.Destroy(ctx, sid)
}
