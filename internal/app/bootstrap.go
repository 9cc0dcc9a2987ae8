package app

import (
	"context"
	"fmt"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/credential"
	"go.uber.org/zap"
)

// bootstrapAdmin seeds the first administrator from config so a fresh
// deployment is reachable. A no-op once any admin exists.
func (a *App) bootstrapAdmin(ctx context.Context) error {
	ba := a.cfg.BootstrapAdmin
	if ba.Username == "" || ba.Email == "" || ba.Password == "" {
		return nil
	}

	var admins int64
	err := a.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("role = ?", models.RoleAdmin).
		Count(&admins).Error
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil
	}

	digest, err := credential.Hash(ba.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	acc := &models.AccountModel{
		Username: ba.Username,
		Email:    ba.Email,
		Password: digest,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := a.directory.Create(ctx, acc); err != nil {
		return err
	}
	a.logger.Info("bootstrap admin created",
		zap.String("username", acc.Username),
		zap.String("email", acc.Email))
	return nil
}
