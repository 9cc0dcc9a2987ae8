// Package entitlement decides whether an account is currently allowed
// to operate. It is pure: all time reads go through an injected clock.
package entitlement

import (
	"math"
	"time"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/clock"
)

// Checker evaluates account entitlement against an injected clock.
type Checker struct {
	clk clock.Clock
}

func NewChecker(clk clock.Clock) *Checker {
	if clk == nil {
		clk = clock.System()
	}
	return &Checker{clk: clk}
}

// IsEntitled reports whether the account may authenticate right now.
// Deactivated accounts are never entitled. Admins bypass the window
// check. A standard account is entitled while now <= package end;
// the end instant itself is still entitled.
func (c *Checker) IsEntitled(acc *models.AccountModel) bool {
	if acc == nil || !acc.IsActive {
		return false
	}
	if acc.IsAdmin() {
		return true
	}
	if acc.PackageEnd == nil {
		return false
	}
	return !c.clk.Now().After(*acc.PackageEnd)
}

// DaysUntilExpiry returns the ceiling of remaining whole days until the
// entitlement window closes. Negative for expired accounts, zero when
// the account has no window.
func (c *Checker) DaysUntilExpiry(acc *models.AccountModel) int {
	if acc == nil || acc.PackageEnd == nil {
		return 0
	}
	remaining := acc.PackageEnd.Sub(c.clk.Now())
	return int(math.Ceil(remaining.Hours() / 24))
}

// IsExpiringWithin reports whether a standard account's window is still
// open and closes within the given number of days. Used by batch
// reporting; admins, windowless accounts and already-closed windows
// never match.
func (c *Checker) IsExpiringWithin(acc *models.AccountModel, days int) bool {
	if acc == nil || acc.IsAdmin() || acc.PackageEnd == nil {
		return false
	}
	if c.clk.Now().After(*acc.PackageEnd) {
		return false
	}
	return c.DaysUntilExpiry(acc) <= days
}

// EndsBefore is a coarse pre-filter for range queries: the cutoff
// instant for accounts expiring within the given number of days.
func (c *Checker) EndsBefore(days int) time.Time {
	return c.clk.Now().AddDate(0, 0, days)
}
