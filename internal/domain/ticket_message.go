package domain

import "time"

// MessageAuthorType tells whether a person or the escalation job wrote a message.
type MessageAuthorType string

const (
	AuthorTypeAgent  MessageAuthorType = "AGENT"
	AuthorTypeSystem MessageAuthorType = "SYSTEM"
)

// TicketMessageType separates customer-visible replies from internal traffic.
type TicketMessageType string

const (
	MessageTypePublicReply  TicketMessageType = "PUBLIC_REPLY"
	MessageTypeInternalNote TicketMessageType = "INTERNAL_NOTE"
	MessageTypeSystemEvent  TicketMessageType = "SYSTEM_EVENT"
)

// Authorable reports whether agents may post messages of this type. System
// events are written by the escalation job only.
func (t TicketMessageType) Authorable() bool {
	return t == MessageTypePublicReply || t == MessageTypeInternalNote
}

// TicketMessage is one entry of a ticket thread. Threads are append-only.
type TicketMessage struct {
	ID          string
	TicketID    string
	AuthorType  MessageAuthorType
	AuthorID    *string
	MessageType TicketMessageType
	Body        string
	CreatedAt   time.Time
}

// Public reports whether the requester would see the message.
func (m *TicketMessage) Public() bool {
	return m.MessageType == MessageTypePublicReply
}
