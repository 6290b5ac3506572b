package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/events"
)

type channel uint8

const (
	channelEmail channel = 1 << iota
	channelWebhook
)

// notificationRoutes decides which channels hear about each event.
var notificationRoutes = map[events.EventType]channel{
	events.EventTicketCreated:          channelEmail | channelWebhook,
	events.EventTicketStatusChanged:    channelWebhook,
	events.EventTicketAssigned:         channelEmail | channelWebhook,
	events.EventTicketMessageAdded:     channelEmail,
	events.EventTicketEscalated:        channelEmail | channelWebhook,
	events.EventEscalationJobCompleted: channelWebhook,
}

// NotificationService turns domain events into outbound notifications.
// Delivery is stubbed as structured log lines.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{logger: nopIfNil(logger), cfg: cfg}
}

// EventTypes lists the events the service wants delivered.
func (n *NotificationService) EventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(notificationRoutes))
	for _, t := range events.AllEventTypes {
		if _, ok := notificationRoutes[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Handle delivers one event. Internal notes and system narration are never
// sent outside.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	route, ok := notificationRoutes[event.Type]
	if !ok {
		return nil
	}
	if payload, isMsg := event.Payload.(events.TicketMessageAddedPayload); isMsg && payload.MessageType != domain.MessageTypePublicReply {
		return nil
	}

	fields := []zap.Field{zap.String("event_id", event.ID), zap.String("ticket_id", event.TicketID)}
	if payload, isEsc := event.Payload.(events.TicketEscalatedPayload); isEsc {
		fields = append(fields,
			zap.String("rule", payload.RuleName),
			zap.String("sla_status", string(payload.SLAStatus)),
			zap.String("priority", string(payload.Priority)))
		if payload.AssignedAgentID != nil && !payload.DanglingAssignee {
			fields = append(fields, zap.String("assigned_agent_id", *payload.AssignedAgentID))
		}
		n.logger.Warn("ticket escalated", fields...)
	} else {
		n.logger.Debug(string(event.Type), fields...)
	}

	if route&channelEmail != 0 {
		n.sendEmail(ctx, event)
	}
	if route&channelWebhook != 0 {
		n.sendWebhook(ctx, event)
	}
	return nil
}

func (n *NotificationService) sendEmail(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Info("email notification queued",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Info("webhook notification queued",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
