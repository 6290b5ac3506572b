package domain

import "time"

// AuditAction captures what an audit entry records.
type AuditAction string

const (
	AuditActionAutoEscalation      AuditAction = "AUTO_ESCALATION"
	AuditActionEscalationJobRun    AuditAction = "ESCALATION_JOB_RUN"
	AuditActionTicketCreated       AuditAction = "TICKET_CREATED"
	AuditActionTicketStatusChanged AuditAction = "TICKET_STATUS_CHANGED"
	AuditActionTicketAssigned      AuditAction = "TICKET_ASSIGNED"
	AuditActionRuleChanged         AuditAction = "RULE_CHANGED"
)

// AuditSeverity grades audit entries.
type AuditSeverity string

const (
	AuditSeverityInfo    AuditSeverity = "INFO"
	AuditSeverityWarning AuditSeverity = "WARNING"
)

// AuditLogEntry is an immutable audit trail entry.
type AuditLogEntry struct {
	ID        string
	Action    AuditAction
	Severity  AuditSeverity
	ActorID   string
	TicketID  *string
	RuleName  string
	Details   map[string]any
	CreatedAt time.Time
}

// SystemActorID identifies automated actions in audit entries.
const SystemActorID = "system"
