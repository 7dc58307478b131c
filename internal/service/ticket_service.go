package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bazzarnet/support-service/internal/domain"
	"github.com/bazzarnet/support-service/internal/events"
	"github.com/bazzarnet/support-service/internal/mailer"
	"github.com/bazzarnet/support-service/internal/repository"
	apperrors "github.com/bazzarnet/support-service/pkg/util"
)

// TicketService coordinates the support ticket lifecycle: submission,
// role-scoped listing and the admin status workflow.
type TicketService struct {
	tickets    repository.TicketRepository
	mail       mailer.Sender
	dispatcher events.Dispatcher
	adminEmail string
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Mail       mailer.Sender
	Dispatcher events.Dispatcher
	AdminEmail string
	Logger     *zap.Logger
}

// SubmitInput describes a support request submission. Role is the raw
// caller-supplied value; it defaults to guest when empty.
type SubmitInput struct {
	Name    string
	Email   string
	Role    string
	Subject string
	Message string
}

// SubmitResult reports the created ticket together with the outcome of
// the operator notification. The ticket is durably stored even when
// EmailDispatched is false.
type SubmitResult struct {
	Ticket          *domain.SupportTicket
	EmailDispatched bool
}

// ListQuery captures status/search filters for listing. Status accepts
// a concrete status, "all" or empty for no filter.
type ListQuery struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// StatusUpdateInput carries the admin mutation. Nil fields are treated
// as "not supplied": a nil status leaves the status untouched, a nil
// notes pointer leaves prior notes intact, while an empty string
// overwrites them.
type StatusUpdateInput struct {
	Status     *domain.TicketStatus
	AdminNotes *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		mail:       deps.Mail,
		dispatcher: deps.Dispatcher,
		adminEmail: deps.AdminEmail,
		logger:     deps.Logger,
	}
}

// Submit validates and persists a new ticket, then attempts to notify
// the operator. Persistence must succeed for the submission to count;
// the notification is best-effort and its failure never rolls the
// ticket back nor fails the submission.
func (s *TicketService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	fieldErrors := map[string]any{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors["name"] = "name is required"
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		fieldErrors["email"] = "email is required"
	} else if !govalidator.IsEmail(email) {
		fieldErrors["email"] = "email is not a valid address"
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		fieldErrors["subject"] = "subject is required"
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		fieldErrors["message"] = "message is required"
	}

	role := domain.RoleGuest
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := domain.ParseRole(strings.TrimSpace(input.Role))
		if !ok {
			fieldErrors["role"] = "role must be one of customer, vendor, admin, guest"
		} else {
			role = parsed
		}
	}

	if len(fieldErrors) > 0 {
		return nil, apperrors.NewValidationError("invalid support request", fieldErrors)
	}

	ticket := &domain.SupportTicket{
		Name:    name,
		Email:   email,
		Role:    role,
		Subject: subject,
		Message: message,
		Status:  domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor:    events.Actor{Email: ticket.Email, Role: ticket.Role},
		Payload: events.TicketSubmittedPayload{
			Name:    ticket.Name,
			Email:   ticket.Email,
			Role:    ticket.Role,
			Subject: ticket.Subject,
		},
	})

	result := &SubmitResult{Ticket: ticket, EmailDispatched: true}
	if err := s.notifyOperator(ctx, ticket); err != nil {
		result.EmailDispatched = false
		s.logger.Warn("operator notification failed; ticket is stored",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
	return result, nil
}

// List returns tickets visible to the actor. Admins see every ticket;
// everyone else is hard-scoped to their own submitter email no matter
// what filters they supply.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, query ListQuery) ([]domain.SupportTicket, error) {
	filter := repository.TicketFilter{
		Limit:  query.Limit,
		Offset: query.Offset,
	}

	statusRaw := strings.TrimSpace(query.Status)
	if statusRaw != "" && statusRaw != domain.StatusFilterAll {
		status, ok := domain.ParseTicketStatus(statusRaw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{
				"status": fmt.Sprintf("%q is not a valid status", statusRaw),
			})
		}
		filter.Status = &status
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.SearchTerm = &search
	}

	switch {
	case actor.Role.Can(domain.CapListAllTickets):
		// no ownership restriction
	case actor.Role.Can(domain.CapListOwnTickets):
		if actor.Email == "" {
			return nil, apperrors.NewForbidden("authenticated identity required")
		}
		email := actor.Email
		filter.SubmitterEmail = &email
	default:
		return nil, apperrors.NewForbidden("not allowed to list tickets")
	}

	return s.tickets.ListWithFilter(ctx, filter)
}

// UpdateStatus applies the admin status workflow to a ticket.
//
// Entering Resolved stamps resolvedAt/resolvedBy once; re-resolving an
// already resolved ticket keeps the original stamp. Moving to any
// non-Resolved status clears both fields. A nil status leaves the
// status alone but still allows a notes update.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, input StatusUpdateInput) (*domain.SupportTicket, error) {
	if !actor.Role.Can(domain.CapUpdateTicketStatus) {
		return nil, apperrors.NewForbidden("admin role required")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("support ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}

	oldStatus := ticket.Status
	if input.Status != nil {
		newStatus := *input.Status
		if newStatus == domain.TicketStatusResolved {
			if ticket.ResolvedAt == nil {
				now := time.Now().UTC()
				resolvedBy := actor.ID
				ticket.ResolvedAt = &now
				ticket.ResolvedBy = &resolvedBy
			}
		} else {
			ticket.ResolvedAt = nil
			ticket.ResolvedBy = nil
		}
		ticket.Status = newStatus
	}
	if input.AdminNotes != nil {
		notes := *input.AdminNotes
		ticket.AdminNotes = &notes
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("support ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{ID: actor.ID, Email: actor.Email, Role: actor.Role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			NotesSet:  input.AdminNotes != nil,
		},
	})
	return ticket, nil
}

func (s *TicketService) notifyOperator(ctx context.Context, ticket *domain.SupportTicket) error {
	if s.mail == nil || s.adminEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("New Support Request: %s (from %s)", ticket.Subject, ticket.Name)
	plain := fmt.Sprintf("New support request from %s (%s) regarding: %s", ticket.Name, ticket.Email, ticket.Subject)
	htmlBody := fmt.Sprintf(`<p>Dear Admin,</p>
<p>A new support request has been submitted:</p>
<ul>
  <li><strong>Ticket ID:</strong> %s</li>
  <li><strong>From:</strong> %s (%s)</li>
  <li><strong>Role:</strong> %s</li>
  <li><strong>Subject:</strong> %s</li>
  <li><strong>Message:</strong></li>
</ul>
<p style="white-space: pre-wrap;">%s</p>
<p>Please investigate and respond to the user as soon as possible.</p>
<p>BazzarNet Support System</p>`,
		ticket.ID, html.EscapeString(ticket.Name), html.EscapeString(ticket.Email),
		ticket.Role, html.EscapeString(ticket.Subject), html.EscapeString(ticket.Message))
	return s.mail.Send(ctx, s.adminEmail, subject, plain, htmlBody)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
