package admin

import (
	"time"

	"github.com/mailwarden/core/internal/models"
)

type CreateAccountDTO struct {
	Username     string     `json:"username" binding:"required,min=3"`
	Email        string     `json:"email"    binding:"required,email"`
	Password     string     `json:"password" binding:"required,min=6"`
	Role         string     `json:"role"`
	PackageID    string     `json:"package_id"`
	PackageStart *time.Time `json:"package_start"`
	PackageEnd   *time.Time `json:"package_end"`
}

type UpdateAccountDTO struct {
	Email        *string    `json:"email"`
	Password     *string    `json:"password"`
	Role         *string    `json:"role"`
	IsActive     *bool      `json:"is_active"`
	PackageID    *string    `json:"package_id"`
	PackageStart *time.Time `json:"package_start"`
	PackageEnd   *time.Time `json:"package_end"`
}

type BulkIDsDTO struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type AssignPackageDTO struct {
	PackageID string    `json:"package_id" binding:"required"`
	Start     time.Time `json:"start"      binding:"required"`
	End       time.Time `json:"end"        binding:"required"`
}

type PackageDTO struct {
	Name             string             `json:"name" binding:"required"`
	EmailCredits     int                `json:"email_credits"`
	ConcurrencyLimit int                `json:"concurrency_limit"`
	Features         models.StringArray `json:"features"`
	IsActive         *bool              `json:"is_active"`
}

type UpdatePackageDTO struct {
	Name             *string             `json:"name"`
	EmailCredits     *int                `json:"email_credits"`
	ConcurrencyLimit *int                `json:"concurrency_limit"`
	Features         *models.StringArray `json:"features"`
	IsActive         *bool               `json:"is_active"`
}

// accountView is the admin console's account row. Expiry is computed
// per request, for display only.
type accountView struct {
	ID              string               `json:"id"`
	Username        string               `json:"username"`
	Email           string               `json:"email"`
	Role            string               `json:"role"`
	IsActive        bool                 `json:"is_active"`
	Package         *models.PackageModel `json:"package,omitempty"`
	PackageStart    *time.Time           `json:"package_start,omitempty"`
	PackageEnd      *time.Time           `json:"package_end,omitempty"`
	BoundDevice     string               `json:"registered_device_id"`
	DaysUntilExpiry int                  `json:"days_until_expiry"`
	LastLoginAt     *time.Time           `json:"last_login_at,omitempty"`
	LastLoginIP     string               `json:"last_login_ip,omitempty"`
	Created         time.Time            `json:"created"`
}
