package account

import (
	"context"
	"strings"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/apperr"
)

// ErrDeviceMismatch is returned when an account is already bound to a
// different device. The caller rejects the attempt and directs the
// user to an administrator; there is no self-service recovery path.
var ErrDeviceMismatch = apperr.New(apperr.KindForbidden, "device_mismatch",
	"this account is registered to another device; contact an administrator")

// BindOrVerify enforces the one-device-per-account invariant. An
// unbound account claims the device (first-claim); a matching binding
// succeeds without mutation; anything else is ErrDeviceMismatch.
//
// The first claim is a conditional update on the bound_device column,
// so two near-simultaneous claims from different devices resolve to
// exactly one winner. On success acc reflects the new binding.
func (s *Service) BindOrVerify(ctx context.Context, acc *models.AccountModel, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return apperr.New(apperr.KindValidation, "missing_device", "device_id is required")
	}

	if acc.BoundDevice != "" {
		if acc.BoundDevice == deviceID {
			return nil
		}
		return ErrDeviceMismatch
	}

	res := s.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ? AND (bound_device = '' OR bound_device IS NULL)", acc.ID).
		Update("bound_device", deviceID)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the claim race; re-read to see who won.
		cur, err := s.FindByID(ctx, acc.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return apperr.New(apperr.KindNotFound, "account_missing", "account not found")
		}
		acc.BoundDevice = cur.BoundDevice
		if cur.BoundDevice == deviceID {
			return nil
		}
		return ErrDeviceMismatch
	}

	acc.BoundDevice = deviceID
	return nil
}

// ClearDevice re-opens first-claim semantics. Admin-only by policy;
// callers also revoke the account's outstanding desktop tokens.
func (s *Service) ClearDevice(ctx context.Context, accountID string) error {
	res := s.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ?", accountID).
		Update("bound_device", "")
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "account_missing", "account not found")
	}
	return nil
}
