package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
	"github.com/spec-kit/helpdesk-escalation/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-escalation/pkg/util/errorutil"
)

// mapRepoError converts repository errors into DomainErrors for resource.
func mapRepoError(err error, resource string, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewConflict(resource+" changed concurrently", map[string]any{resource + "_id": id})
	}
	return apperrors.ToDomainError(err)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// appendAudit writes an audit entry. Failures are logged and swallowed.
func appendAudit(ctx context.Context, audit repository.AuditLogRepository, logger *zap.Logger, entry *domain.AuditLogEntry) {
	if audit == nil {
		return
	}
	if err := audit.Append(ctx, entry); err != nil {
		logger.Error("audit write failed",
			zap.String("action", string(entry.Action)),
			zap.String("audit_id", entry.ID),
			zap.Error(err))
	}
}

func stringPreview(body string, max int) string {
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	return string(runes[:max]) + "..."
}

func ptrString(v string) *string {
	return &v
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func ptrBool(v bool) *bool {
	return &v
}
