package entitlement

import (
	"testing"
	"time"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func standard(end *time.Time, active bool) *models.AccountModel {
	return &models.AccountModel{
		Role:       models.RoleStandard,
		IsActive:   active,
		PackageEnd: end,
	}
}

func ts(t time.Time) *time.Time { return &t }

func TestIsEntitled(t *testing.T) {
	c := NewChecker(clock.Fixed(now))

	tests := []struct {
		name string
		acc  *models.AccountModel
		want bool
	}{
		{"nil account", nil, false},
		{"window open", standard(ts(now.Add(24*time.Hour)), true), true},
		{"end instant itself", standard(ts(now), true), true},
		{"one second past end", standard(ts(now.Add(-time.Second)), true), false},
		{"no window", standard(nil, true), false},
		{"deactivated with open window", standard(ts(now.Add(24*time.Hour)), false), false},
		{"admin without window", &models.AccountModel{Role: models.RoleAdmin, IsActive: true}, true},
		{"admin with expired window", &models.AccountModel{
			Role: models.RoleAdmin, IsActive: true, PackageEnd: ts(now.Add(-time.Hour)),
		}, true},
		{"deactivated admin", &models.AccountModel{Role: models.RoleAdmin, IsActive: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsEntitled(tt.acc))
		})
	}
}

func TestDaysUntilExpiry(t *testing.T) {
	c := NewChecker(clock.Fixed(now))

	assert.Equal(t, 0, c.DaysUntilExpiry(nil))
	assert.Equal(t, 0, c.DaysUntilExpiry(standard(nil, true)))
	// Partial days round up.
	assert.Equal(t, 1, c.DaysUntilExpiry(standard(ts(now.Add(time.Hour)), true)))
	assert.Equal(t, 2, c.DaysUntilExpiry(standard(ts(now.Add(36*time.Hour)), true)))
	assert.Equal(t, 7, c.DaysUntilExpiry(standard(ts(now.AddDate(0, 0, 7)), true)))
	assert.Equal(t, -1, c.DaysUntilExpiry(standard(ts(now.Add(-25*time.Hour)), true)))
}

func TestIsExpiringWithin(t *testing.T) {
	c := NewChecker(clock.Fixed(now))

	assert.True(t, c.IsExpiringWithin(standard(ts(now.Add(48*time.Hour)), true), 7))
	assert.True(t, c.IsExpiringWithin(standard(ts(now.AddDate(0, 0, 7)), true), 7))
	assert.False(t, c.IsExpiringWithin(standard(ts(now.AddDate(0, 0, 8)), true), 7))
	// Already expired accounts are not "expiring", even when the window
	// closed less than a day ago.
	assert.False(t, c.IsExpiringWithin(standard(ts(now.Add(-48*time.Hour)), true), 7))
	assert.False(t, c.IsExpiringWithin(standard(ts(now.Add(-time.Hour)), true), 7))
	assert.False(t, c.IsExpiringWithin(standard(ts(now.Add(-time.Second)), true), 7))
	assert.False(t, c.IsExpiringWithin(standard(nil, true), 7))
	assert.False(t, c.IsExpiringWithin(&models.AccountModel{Role: models.RoleAdmin, IsActive: true}, 7))
}

func TestEndsBefore(t *testing.T) {
	c := NewChecker(clock.Fixed(now))
	assert.Equal(t, now.AddDate(0, 0, 7), c.EndsBefore(7))
}
