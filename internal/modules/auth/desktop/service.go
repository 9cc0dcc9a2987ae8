package desktop

import (
	"context"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/modules/account"
	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/mailwarden/core/internal/pkg/audit"
	"github.com/mailwarden/core/internal/pkg/credential"
	"github.com/mailwarden/core/internal/pkg/entitlement"
	"github.com/mailwarden/core/internal/pkg/token"
)

const channel = "desktop"

// errBadCredential keeps unknown-account and wrong-password responses
// indistinguishable.
var errBadCredential = apperr.New(apperr.KindUnauthenticated, "bad_credential", "invalid username or password")

// Service is the desktop client's authentication flow: credential →
// entitlement → device binding → token issuance.
type Service struct {
	directory *account.Service
	tokens    *token.Manager
	ent       *entitlement.Checker
	aud       *audit.Logger
}

func NewService(directory *account.Service, tokens *token.Manager, ent *entitlement.Checker, aud *audit.Logger) *Service {
	return &Service{directory: directory, tokens: tokens, ent: ent, aud: aud}
}

// Login authenticates the desktop client and issues a bearer token.
// The device binding is mutated only after every prior check passed,
// so an aborted request leaves no partial state.
func (s *Service) Login(ctx context.Context, username, password, deviceID, ip string) (string, *models.AccountModel, error) {
	acc, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if acc == nil {
		// Burn a verification anyway so a missing account costs the
		// same as a wrong password; the result is discarded.
		credential.Verify(password, credential.DummyDigest)
		s.aud.LoginDenied(channel, username, "unknown_account", ip)
		return "", nil, errBadCredential
	}
	if !credential.Verify(password, acc.Password) {
		s.aud.LoginDenied(channel, username, "bad_credential", ip)
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
	if err := s.directory.BindOrVerify(ctx, acc, deviceID); err != nil {
		s.aud.LoginDenied(channel, acc.ID, apperr.ReasonOf(err), ip)
		return "", nil, err
	}

	tok, _, err := s.tokens.Issue(ctx, acc.ID, deviceID)
	if err != nil {
		return "", nil, err
	}
	s.directory.TouchLogin(ctx, acc.ID, ip)
	s.aud.LoginOK(channel, acc.ID, ip)
	return tok, acc, nil
}

// Verify resolves a token against current account state. The account
// must still be entitled and its current bound device must match the
// device recorded at issuance; a newer binding from another device
// invalidates every older token on the spot.
func (s *Service) Verify(ctx context.Context, tok, ip string) (*models.AccountModel, error) {
	rec, err := s.tokens.Lookup(ctx, tok)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		s.aud.TokenDenied("unknown_token", ip)
		return nil, apperr.New(apperr.KindUnauthenticated, "unknown_token", "token is invalid or expired")
	}
	acc, err := s.directory.FindByID(ctx, rec.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		_, _ = s.tokens.Revoke(ctx, tok)
		s.aud.TokenDenied("account_missing", ip)
		return nil, apperr.New(apperr.KindUnauthenticated, "account_missing", "token is invalid or expired")
	}
	if !acc.IsActive {
		s.aud.TokenDenied("deactivated", ip)
		return nil, apperr.New(apperr.KindForbidden, "deactivated", "account is deactivated")
	}
	if !s.ent.IsEntitled(acc) {
		s.aud.TokenDenied("entitlement_expired", ip)
		return nil, apperr.New(apperr.KindForbidden, "entitlement_expired", "subscription has expired")
	}
	if acc.BoundDevice != rec.DeviceID {
		// A different device has bound since issuance; the token is
		// dead for good, so drop it now.
		_, _ = s.tokens.Revoke(ctx, tok)
		s.aud.TokenDenied("device_superseded", ip)
		return nil, apperr.New(apperr.KindUnauthenticated, "device_superseded", "token is invalid or expired")
	}
	return acc, nil
}

// Logout removes the token record. The account-level device binding
// stays; only an admin reset clears it.
func (s *Service) Logout(ctx context.Context, tok string) error {
	found, err := s.tokens.Revoke(ctx, tok)
	if err != nil {
		return err
	}
	if !found {
		return apperr.New(apperr.KindUnauthenticated, "unknown_token", "token is invalid or expired")
	}
	return nil
}
