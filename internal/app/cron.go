package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mailwarden/core/internal/config"
	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/clock"
	pkgcron "github.com/mailwarden/core/internal/pkg/cron"
	"github.com/mailwarden/core/internal/pkg/entitlement"
	"github.com/mailwarden/core/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs wires the background jobs. Jobs run best-effort; a
// failed run is retried on the next tick.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, cfg *config.AppConfig, logger *zap.Logger) {
	sender := mail.New(cfg.Mail)
	ent := entitlement.NewChecker(clock.System())
	reminderDays := cfg.ExpiryReminderDays

	sched.Register(pkgcron.Job{
		Name:        "expiry_reminder",
		Description: fmt.Sprintf("email accounts whose package ends within %d days", reminderDays),
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := ent.EndsBefore(reminderDays)
			now := time.Now()

			var accounts []models.AccountModel
			err := db.WithContext(ctx).
				Preload("Package").
				Where("role = ? AND is_active = ? AND package_end IS NOT NULL AND package_end > ? AND package_end <= ?",
					models.RoleStandard, true, now, cutoff).
				Find(&accounts).Error
			if err != nil {
				return fmt.Errorf("query expiring accounts: %w", err)
			}

			failed := 0
			for i := range accounts {
				acc := &accounts[i]
				days := ent.DaysUntilExpiry(acc)
				msg := mail.Message{
					To:      []string{acc.Email},
					Subject: fmt.Sprintf("Your MailWarden package expires in %d day(s)", days),
					Text: fmt.Sprintf(
						"Hi %s,\n\nyour package expires on %s. Renew it to keep sending without interruption.\n",
						acc.Username, acc.PackageEnd.Format("2006-01-02")),
				}
				if err := sender.Send(msg); err != nil {
					failed++
					logger.Warn("expiry reminder not delivered",
						zap.String("account_id", acc.ID),
						zap.Error(err))
				}
			}

			logger.Info("expiry reminders processed",
				zap.Int("matched", len(accounts)),
				zap.Int("failed", failed))
			if failed > 0 {
				return fmt.Errorf("%d of %d reminders failed", failed, len(accounts))
			}
			return nil
		},
	})
}
