package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen             TicketStatus = "OPEN"
	TicketStatusInProgress       TicketStatus = "IN_PROGRESS"
	TicketStatusAwaitingCustomer TicketStatus = "AWAITING_CUSTOMER"
	TicketStatusResolved         TicketStatus = "RESOLVED"
	TicketStatusClosed           TicketStatus = "CLOSED"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusAwaitingCustomer, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Settled reports whether the SLA clock has stopped for the status.
func (s TicketStatus) Settled() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether the priority belongs to the closed set.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategory classifies the kind of request.
type TicketCategory string

const (
	CategoryTechnical TicketCategory = "TECHNICAL"
	CategoryHardware  TicketCategory = "HARDWARE"
	CategorySoftware  TicketCategory = "SOFTWARE"
	CategoryNetwork   TicketCategory = "NETWORK"
	CategoryAccess    TicketCategory = "ACCESS"
	CategoryBilling   TicketCategory = "BILLING"
	CategoryGeneral   TicketCategory = "GENERAL"
)

// Valid reports whether the category belongs to the closed set.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryHardware, CategorySoftware, CategoryNetwork,
		CategoryAccess, CategoryBilling, CategoryGeneral:
		return true
	}
	return false
}

// AssetRef points at the inventory item a ticket is about.
type AssetRef struct {
	ID        string
	ModelName string
}

// Ticket is the aggregate for support requests.
//
// SLATarget, SLATier and DemandFactorApplied are stamped once at creation and
// never rewritten. The SLA status is not stored; see sla.Status.
type Ticket struct {
	ID                  string
	Title               string
	Description         string
	RequesterID         string
	Priority            TicketPriority
	Category            TicketCategory
	Status              TicketStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
	SLATarget           time.Time
	SLATier             SLATier
	DemandFactorApplied float64
	IsEscalated         bool
	AssignedAgentID     *string
	AssignedGroupID     *string
	LinkedAsset         *AssetRef
}

// Open reports whether the ticket still runs against its SLA.
func (t *Ticket) Open() bool {
	return !t.Status.Settled()
}

// Clone returns a deep copy safe to mutate independently.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedAgentID != nil {
		v := *t.AssignedAgentID
		out.AssignedAgentID = &v
	}
	if t.AssignedGroupID != nil {
		v := *t.AssignedGroupID
		out.AssignedGroupID = &v
	}
	if t.LinkedAsset != nil {
		v := *t.LinkedAsset
		out.LinkedAsset = &v
	}
	return out
}
