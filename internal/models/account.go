package models

import "time"

// Account roles. Standard accounts carry a package and an entitlement
// window; admin accounts carry neither.
const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// AccountModel represents a user account of the gateway.
type AccountModel struct {
	Base
	Username string `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email    string `json:"email"    gorm:"uniqueIndex;size:190;not null"`
	Password string `json:"-"        gorm:"not null"`
	Role     string `json:"role"     gorm:"size:16;not null;default:standard"`
	IsActive bool   `json:"is_active" gorm:"not null;default:true"`

	// Subscription. Required for standard accounts, absent for admins.
	PackageID    *string       `json:"package_id"    gorm:"type:char(36);index"`
	Package      *PackageModel `json:"package,omitempty" gorm:"foreignKey:PackageID"`
	PackageStart *time.Time    `json:"package_start"`
	PackageEnd   *time.Time    `json:"package_end"`

	// BoundDevice is the exclusive desktop device claim. Empty means
	// unclaimed; the next successful desktop login takes it.
	BoundDevice string `json:"registered_device_id" gorm:"size:190"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`
}

func (AccountModel) TableName() string { return "accounts" }

// IsAdmin reports whether the account has the admin role.
func (a *AccountModel) IsAdmin() bool { return a.Role == RoleAdmin }

// PackageModel is a subscription tier referenced by standard accounts.
type PackageModel struct {
	Base
	Name             string      `json:"name"              gorm:"uniqueIndex;size:64;not null"`
	EmailCredits     int         `json:"email_credits"     gorm:"not null"`
	ConcurrencyLimit int         `json:"concurrency_limit" gorm:"not null;default:1"`
	Features         StringArray `json:"features"          gorm:"type:text"`
	IsActive         bool        `json:"is_active"         gorm:"not null;default:true"`
}

func (PackageModel) TableName() string { return "packages" }
