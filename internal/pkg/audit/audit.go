// Package audit reports authentication decisions for later forensic
// review. It is an injected collaborator; response bodies stay coarse
// while the audit trail keeps the specific reason.
package audit

import "go.uber.org/zap"

// Logger writes structured audit events. A nil Logger drops events,
// which keeps tests free of logging setup.
type Logger struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Logger {
	if log == nil {
		return nil
	}
	return &Logger{log: log.Named("audit")}
}

// LoginDenied records a rejected authentication attempt. principal may
// be a username, email or account id, depending on what was known.
func (l *Logger) LoginDenied(channel, principal, reason, ip string) {
	if l == nil {
		return
	}
	l.log.Warn("login denied",
		zap.String("channel", channel),
		zap.String("principal", principal),
		zap.String("reason", reason),
		zap.String("ip", ip),
	)
}

// LoginOK records a successful authentication.
func (l *Logger) LoginOK(channel, accountID, ip string) {
	if l == nil {
		return
	}
	l.log.Info("login ok",
		zap.String("channel", channel),
		zap.String("account_id", accountID),
		zap.String("ip", ip),
	)
}

// SessionDestroyed records a session killed for an entitlement
// violation discovered mid-session.
func (l *Logger) SessionDestroyed(accountID, reason string) {
	if l == nil {
		return
	}
	l.log.Warn("session destroyed",
		zap.String("account_id", accountID),
		zap.String("reason", reason),
	)
}

// TokenDenied records a rejected desktop token verification.
func (l *Logger) TokenDenied(reason, ip string) {
	if l == nil {
		return
	}
	l.log.Warn("token denied",
		zap.String("reason", reason),
		zap.String("ip", ip),
	)
}

// AdminAction records an administrative mutation.
func (l *Logger) AdminAction(actorID, action string, fields ...zap.Field) {
	if l == nil {
		return
	}
	all := append([]zap.Field{
		zap.String("actor_id", actorID),
		zap.String("action", action),
	}, fields...)
	l.log.Info("admin action", all...)
}
