package admin

import (
	"context"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/modules/account"
	"github.com/mailwarden/core/internal/pkg/audit"
	"github.com/mailwarden/core/internal/pkg/credential"
	"github.com/mailwarden/core/internal/pkg/token"
	"go.uber.org/zap"
)

// Service performs administrative mutations. It delegates invariant
// enforcement to the account directory so the admin paths can never be
// more permissive than the self-service ones.
type Service struct {
	directory *account.Service
	tokens    *token.Manager
	aud       *audit.Logger
}

func NewService(directory *account.Service, tokens *token.Manager, aud *audit.Logger) *Service {
	return &Service{directory: directory, tokens: tokens, aud: aud}
}

func (s *Service) CreateAccount(ctx context.Context, actorID string, dto *CreateAccountDTO) (*models.AccountModel, error) {
	hash, err := credential.Hash(dto.Password)
	if err != nil {
		return nil, err
	}
	role := dto.Role
	if role == "" {
		role = models.RoleStandard
	}
	acc := &models.AccountModel{
		Username:     dto.Username,
		Email:        dto.Email,
		Password:     hash,
		Role:         role,
		IsActive:     true,
		PackageStart: dto.PackageStart,
		PackageEnd:   dto.PackageEnd,
	}
	if dto.PackageID != "" {
		acc.PackageID = &dto.PackageID
	}
	if err := s.directory.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.aud.AdminAction(actorID, "account_create", zap.String("account_id", acc.ID))
	return acc, nil
}

func (s *Service) UpdateAccount(ctx context.Context, actorID, id string, dto *UpdateAccountDTO) (*models.AccountModel, error) {
	params := account.UpdateParams{
		Email:        dto.Email,
		Role:         dto.Role,
		IsActive:     dto.IsActive,
		PackageID:    dto.PackageID,
		PackageStart: dto.PackageStart,
		PackageEnd:   dto.PackageEnd,
	}
	// Hashing is re-run only when the secret itself changes.
	if dto.Password != nil && *dto.Password != "" {
		hash, err := credential.Hash(*dto.Password)
		if err != nil {
			return nil, err
		}
		params.PasswordHash = &hash
	}
	acc, err := s.directory.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}
	s.aud.AdminAction(actorID, "account_update", zap.String("account_id", id))
	return acc, nil
}

func (s *Service) BulkSetActive(ctx context.Context, actorID string, ids []string, active bool) (int64, error) {
	n, err := s.directory.SetActive(ctx, ids, active)
	if err != nil {
		return 0, err
	}
	action := "accounts_deactivate"
	if active {
		action = "accounts_activate"
	}
	s.aud.AdminAction(actorID, action, zap.Int64("count", n))
	return n, nil
}

func (s *Service) BulkDelete(ctx context.Context, actorID string, ids []string) (int64, error) {
	n, err := s.directory.BulkDelete(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		_ = s.tokens.RevokeAccount(ctx, id)
	}
	s.aud.AdminAction(actorID, "accounts_delete", zap.Int64("count", n))
	return n, nil
}

// ResetDevice clears the device binding, re-opening first-claim
// semantics, and revokes every desktop token issued under the old
// binding.
func (s *Service) ResetDevice(ctx context.Context, actorID, accountID string) error {
	if err := s.directory.ClearDevice(ctx, accountID); err != nil {
		return err
	}
	if err := s.tokens.RevokeAccount(ctx, accountID); err != nil {
		return err
	}
	s.aud.AdminAction(actorID, "device_reset", zap.String("account_id", accountID))
	return nil
}

func (s *Service) AssignPackage(ctx context.Context, actorID, accountID string, dto *AssignPackageDTO) (*models.AccountModel, error) {
	acc, err := s.directory.AssignPackage(ctx, accountID, dto.PackageID, dto.Start, dto.End)
	if err != nil {
		return nil, err
	}
	s.aud.AdminAction(actorID, "package_assign",
		zap.String("account_id", accountID),
		zap.String("package_id", dto.PackageID),
	)
	return acc, nil
}

func (s *Service) CreatePackage(ctx context.Context, actorID string, dto *PackageDTO) (*models.PackageModel, error) {
	pkg := &models.PackageModel{
		Name:             dto.Name,
		EmailCredits:     dto.EmailCredits,
		ConcurrencyLimit: dto.ConcurrencyLimit,
		Features:         dto.Features,
		IsActive:         true,
	}
	if dto.IsActive != nil {
		pkg.IsActive = *dto.IsActive
	}
	if err := s.directory.CreatePackage(ctx, pkg); err != nil {
		return nil, err
	}
	s.aud.AdminAction(actorID, "package_create", zap.String("package_id", pkg.ID))
	return pkg, nil
}

func (s *Service) UpdatePackage(ctx context.Context, actorID, id string, dto *UpdatePackageDTO) (*models.PackageModel, error) {
	pkg, err := s.directory.UpdatePackage(ctx, id, account.PackageParams{
		Name:             dto.Name,
		EmailCredits:     dto.EmailCredits,
		ConcurrencyLimit: dto.ConcurrencyLimit,
		Features:         dto.Features,
		IsActive:         dto.IsActive,
	})
	if err != nil {
		return nil, err
	}
	s.aud.AdminAction(actorID, "package_update", zap.String("package_id", id))
	return pkg, nil
}

func (s *Service) DeletePackage(ctx context.Context, actorID, id string) error {
	if err := s.directory.DeletePackage(ctx, id); err != nil {
		return err
	}
	s.aud.AdminAction(actorID, "package_delete", zap.String("package_id", id))
	return nil
}
