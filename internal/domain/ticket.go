package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "Open"
	TicketStatusResolved TicketStatus = "Resolved"
	TicketStatusClosed   TicketStatus = "Closed"
)

// StatusFilterAll is the sentinel accepted by list operations meaning
// "no status filter".
const StatusFilterAll = "all"

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(raw) {
	case TicketStatusOpen, TicketStatusResolved, TicketStatusClosed:
		return TicketStatus(raw), true
	}
	return "", false
}

// SupportTicket is the aggregate for support requests. The submitter
// fields are a snapshot taken at creation time and never re-derived
// from a live account, so they survive later account changes.
type SupportTicket struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	Subject    string
	Message    string
	Status     TicketStatus
	AdminNotes *string
	ResolvedBy *string
	ResolvedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsResolved reports whether the ticket currently holds resolution metadata.
func (t *SupportTicket) IsResolved() bool {
	return t.Status == TicketStatusResolved
}
