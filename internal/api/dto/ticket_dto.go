package dto

import (
	"time"

	"github.com/bazzarnet/support-service/internal/domain"
)

// SubmitTicketRequest payload for the public submit endpoint.
type SubmitTicketRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// UpdateTicketStatusRequest payload for the admin status endpoint.
// Pointer fields distinguish "omitted" from an explicit empty value.
type UpdateTicketStatusRequest struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// TicketResponse is the wire representation of a support ticket.
type TicketResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Role       domain.Role         `json:"role"`
	Subject    string              `json:"subject"`
	Message    string              `json:"message"`
	Status     domain.TicketStatus `json:"status"`
	AdminNotes *string             `json:"admin_notes,omitempty"`
	ResolvedBy *string             `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// NewTicketResponse maps the domain entity to its wire form.
func NewTicketResponse(ticket *domain.SupportTicket) TicketResponse {
	return TicketResponse{
		ID:         ticket.ID,
		Name:       ticket.Name,
		Email:      ticket.Email,
		Role:       ticket.Role,
		Subject:    ticket.Subject,
		Message:    ticket.Message,
		Status:     ticket.Status,
		AdminNotes: ticket.AdminNotes,
		ResolvedBy: ticket.ResolvedBy,
		ResolvedAt: ticket.ResolvedAt,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}
