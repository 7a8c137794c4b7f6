package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/picketer/internal/auditctx"
	"github.com/charlesng35/picketer/pkg/logger"
)

// recordAudit logs the supplied entry while tolerating audit failures. Actor
// fields missing from entry are filled from the request context.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if actor, ok := auditctx.FromContext(ctx); ok && !actor.Anonymous() {
		if entry.UserID == nil && actor.UserID != "" {
			id := actor.UserID
			entry.UserID = &id
		}
		if entry.Email == "" {
			entry.Email = actor.Email
		}
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = actor.UserAgent
		}
	}
	if err := audit.Log(context.WithoutCancel(ensureContext(ctx)), entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
