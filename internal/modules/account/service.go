package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/mailwarden/core/internal/pkg/entitlement"
	"github.com/mailwarden/core/internal/pkg/session"
	"gorm.io/gorm"
)

// Service is the account directory: it owns persisted account and
// package records and enforces their invariants.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// DB exposes the underlying handle for list queries (pagination).
func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) FindByID(ctx context.Context, id string) (*models.AccountModel, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *Service) FindByUsername(ctx context.Context, username string) (*models.AccountModel, error) {
	return s.findOne(ctx, "username = ?", strings.TrimSpace(username))
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*models.AccountModel, error) {
	return s.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) findOne(ctx context.Context, query string, arg string) (*models.AccountModel, error) {
	var acc models.AccountModel
	err := s.db.WithContext(ctx).Preload("Package").Where(query, arg).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return &acc, nil
}

// Create persists a new account. The password must already be hashed.
// Standard accounts require a package reference and an entitlement
// window; admins carry neither.
func (s *Service) Create(ctx context.Context, acc *models.AccountModel) error {
	acc.Username = strings.TrimSpace(acc.Username)
	acc.Email = strings.ToLower(strings.TrimSpace(acc.Email))
	if err := s.validate(ctx, acc); err != nil {
		return err
	}
	if err := s.checkUnique(ctx, acc.Username, acc.Email, ""); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(acc).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// UpdateParams are the mutable account fields for admin edits. Nil
// means "leave unchanged". PasswordHash is set only when the secret
// itself changed; unrelated saves never re-hash.
type UpdateParams struct {
	Email        *string
	PasswordHash *string
	Role         *string
	IsActive     *bool
	PackageID    *string
	PackageStart *time.Time
	PackageEnd   *time.Time
}

// Update applies an admin edit while preserving directory invariants.
func (s *Service) Update(ctx context.Context, id string, p UpdateParams) (*models.AccountModel, error) {
	acc, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, apperr.New(apperr.KindNotFound, "account_missing", "account not found")
	}

	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if email != acc.Email {
			if err := s.checkUnique(ctx, "", email, acc.ID); err != nil {
				return nil, err
			}
			acc.Email = email
		}
	}
	if p.PasswordHash != nil {
		acc.Password = *p.PasswordHash
	}
	if p.Role != nil && *p.Role != acc.Role {
		if acc.Role == models.RoleAdmin {
			n, err := s.countAdminsExcluding(ctx, []string{acc.ID})
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, apperr.New(apperr.KindConflict, "last_admin", "cannot demote the last admin account")
			}
		}
		acc.Role = *p.Role
	}
	if p.IsActive != nil {
		acc.IsActive = *p.IsActive
	}
	if p.PackageID != nil {
		acc.PackageID = p.PackageID
		acc.Package = nil
	}
	if p.PackageStart != nil {
		acc.PackageStart = p.PackageStart
	}
	if p.PackageEnd != nil {
		acc.PackageEnd = p.PackageEnd
	}

	if err := s.validate(ctx, acc); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(acc).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return acc, nil
}

// SetActive flips the activation flag on a set of accounts. Entitlement
// is recomputed lazily on next access, never eagerly.
func (s *Service) SetActive(ctx context.Context, ids []string, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id IN ?", ids).
		Update("is_active", active)
	if res.Error != nil {
		return 0, apperr.Internal(res.Error)
	}
	return res.RowsAffected, nil
}

// BulkDelete removes accounts, refusing when the target set would take
// out the last admin.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	remaining, err := s.countAdminsExcluding(ctx, ids)
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		return 0, apperr.New(apperr.KindConflict, "last_admin", "refusing to delete the last admin account")
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.AccountModel{})
	if res.Error != nil {
		return 0, apperr.Internal(res.Error)
	}
	return res.RowsAffected, nil
}

// AssignPackage moves an account onto a package with a fresh
// entitlement window.
func (s *Service) AssignPackage(ctx context.Context, accountID, packageID string, start, end time.Time) (*models.AccountModel, error) {
	pkg, err := s.FindPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, apperr.New(apperr.KindNotFound, "package_missing", "package not found")
	}
	return s.Update(ctx, accountID, UpdateParams{
		PackageID:    &packageID,
		PackageStart: &start,
		PackageEnd:   &end,
	})
}

// TouchLogin stamps the advisory last-login fields.
func (s *Service) TouchLogin(ctx context.Context, id, ip string) {
	now := time.Now()
	_ = s.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_login_ip": ip,
		}).Error
}

// Revalidator builds the session revalidation hook: it re-reads the
// authoritative account record and rejects identities whose account
// was deleted, deactivated or expired since the session was
// established.
func (s *Service) Revalidator(ent *entitlement.Checker) session.RevalidateFunc {
	return func(ctx context.Context, cur session.Identity) (session.Identity, error) {
		acc, err := s.FindByID(ctx, cur.AccountID)
		if err != nil {
			return session.Identity{}, err
		}
		if acc == nil {
			return session.Identity{}, apperr.New(apperr.KindUnauthenticated, "account_missing", "session is invalid or expired")
		}
		if !acc.IsActive {
			return session.Identity{}, apperr.New(apperr.KindForbidden, "deactivated", "account is deactivated")
		}
		if !ent.IsEntitled(acc) {
			return session.Identity{}, apperr.New(apperr.KindForbidden, "entitlement_expired", "subscription has expired")
		}
		return IdentityOf(acc), nil
	}
}

// IdentityOf builds the session identity payload for an account. The
// package snapshot and end date are carried for standard accounts
// only.
func IdentityOf(acc *models.AccountModel) session.Identity {
	id := session.Identity{
		AccountID: acc.ID,
		Username:  acc.Username,
		Email:     acc.Email,
		Role:      acc.Role,
		IsActive:  acc.IsActive,
	}
	if !acc.IsAdmin() {
		id.PackageEnd = acc.PackageEnd
		if acc.Package != nil {
			id.Package = &session.PackageSnapshot{
				ID:               acc.Package.ID,
				Name:             acc.Package.Name,
				EmailCredits:     acc.Package.EmailCredits,
				ConcurrencyLimit: acc.Package.ConcurrencyLimit,
			}
		}
	}
	return id
}

func (s *Service) validate(ctx context.Context, acc *models.AccountModel) error {
	if acc.Username == "" || acc.Email == "" {
		return apperr.New(apperr.KindValidation, "missing_field", "username and email are required")
	}
	switch acc.Role {
	case models.RoleAdmin:
		// Entitlement window and package are ignored for admins.
		return nil
	case models.RoleStandard:
		if acc.PackageID == nil || *acc.PackageID == "" {
			return apperr.New(apperr.KindValidation, "package_required", "standard accounts require a package")
		}
		if acc.PackageEnd == nil {
			return apperr.New(apperr.KindValidation, "window_required", "standard accounts require an entitlement window")
		}
		pkg, err := s.FindPackage(ctx, *acc.PackageID)
		if err != nil {
			return err
		}
		if pkg == nil {
			return apperr.New(apperr.KindNotFound, "package_missing", "package not found")
		}
		return nil
	default:
		return apperr.New(apperr.KindValidation, "bad_role", "role must be standard or admin")
	}
}

func (s *Service) checkUnique(ctx context.Context, username, email, excludeID string) error {
	q := s.db.WithContext(ctx).Model(&models.AccountModel{})
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return nil
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperr.Internal(err)
	}
	if count > 0 {
		return apperr.New(apperr.KindConflict, "duplicate_account", "username or email already in use")
	}
	return nil
}

func (s *Service) countAdminsExcluding(ctx context.Context, ids []string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("role = ?", models.RoleAdmin).
		Where("id NOT IN ?", ids).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}
