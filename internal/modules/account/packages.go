package account

import (
	"context"
	"errors"
	"strings"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/apperr"
	"gorm.io/gorm"
)

const (
	maxEmailCredits     = 1_000_000
	maxConcurrencyLimit = 1000
)

func (s *Service) FindPackage(ctx context.Context, id string) (*models.PackageModel, error) {
	var pkg models.PackageModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return &pkg, nil
}

func (s *Service) ListPackages(ctx context.Context) ([]models.PackageModel, error) {
	var pkgs []models.PackageModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&pkgs).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return pkgs, nil
}

func (s *Service) CreatePackage(ctx context.Context, pkg *models.PackageModel) error {
	pkg.Name = strings.TrimSpace(pkg.Name)
	if err := validatePackage(pkg); err != nil {
		return err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PackageModel{}).
		Where("name = ?", pkg.Name).Count(&count).Error; err != nil {
		return apperr.Internal(err)
	}
	if count > 0 {
		return apperr.New(apperr.KindConflict, "duplicate_package", "package name already in use")
	}
	if err := s.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// PackageParams are the mutable package fields. Nil means unchanged.
type PackageParams struct {
	Name             *string
	EmailCredits     *int
	ConcurrencyLimit *int
	Features         *models.StringArray
	IsActive         *bool
}

func (s *Service) UpdatePackage(ctx context.Context, id string, p PackageParams) (*models.PackageModel, error) {
	pkg, err := s.FindPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, apperr.New(apperr.KindNotFound, "package_missing", "package not found")
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name != pkg.Name {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.PackageModel{}).
				Where("name = ? AND id <> ?", name, id).Count(&count).Error; err != nil {
				return nil, apperr.Internal(err)
			}
			if count > 0 {
				return nil, apperr.New(apperr.KindConflict, "duplicate_package", "package name already in use")
			}
			pkg.Name = name
		}
	}
	if p.EmailCredits != nil {
		pkg.EmailCredits = *p.EmailCredits
	}
	if p.ConcurrencyLimit != nil {
		pkg.ConcurrencyLimit = *p.ConcurrencyLimit
	}
	if p.Features != nil {
		pkg.Features = *p.Features
	}
	if p.IsActive != nil {
		pkg.IsActive = *p.IsActive
	}

	if err := validatePackage(pkg); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(pkg).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return pkg, nil
}

// DeletePackage removes a package. There is no cascading delete: the
// directory refuses while any account still references it.
func (s *Service) DeletePackage(ctx context.Context, id string) error {
	n, err := s.CountAccountsReferencing(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.New(apperr.KindConflict, "package_referenced", "package is still assigned to accounts")
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PackageModel{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "package_missing", "package not found")
	}
	return nil
}

func (s *Service) CountAccountsReferencing(ctx context.Context, packageID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("package_id = ?", packageID).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

func validatePackage(pkg *models.PackageModel) error {
	if pkg.Name == "" {
		return apperr.New(apperr.KindValidation, "missing_field", "package name is required")
	}
	if pkg.EmailCredits < 0 || pkg.EmailCredits > maxEmailCredits {
		return apperr.New(apperr.KindValidation, "bad_credits", "email credits must be between 0 and 1000000")
	}
	if pkg.ConcurrencyLimit < 1 || pkg.ConcurrencyLimit > maxConcurrencyLimit {
		return apperr.New(apperr.KindValidation, "bad_concurrency", "concurrency limit must be between 1 and 1000")
	}
	return nil
}
