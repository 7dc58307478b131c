package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bazzarnet/support-service/internal/api/dto"
	"github.com/bazzarnet/support-service/internal/auth"
	"github.com/bazzarnet/support-service/internal/domain"
	"github.com/bazzarnet/support-service/internal/service"
	apperrors "github.com/bazzarnet/support-service/pkg/util"
)

const (
	submitOKMessage = "Your support request has been submitted successfully. We will get back to you shortly."
	// Shown when the operator email could not be sent. The ticket is
	// stored regardless, and the response must say so.
	submitDegradedMessage = "Your support request has been recorded. We could not notify our support team by email right away, but your ticket is saved and will be handled."
)

// SupportHandler exposes the support ticket endpoints.
type SupportHandler struct {
	service *service.TicketService
}

// NewSupportHandler constructs handler.
func NewSupportHandler(ticketService *service.TicketService) *SupportHandler {
	return &SupportHandler{service: ticketService}
}

// Submit handles POST /api/support/submit. Public: guests may submit
// without an account.
func (h *SupportHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.Submit(c.Context(), service.SubmitInput{
		Name:    req.Name,
		Email:   req.Email,
		Role:    req.Role,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}

	message := submitOKMessage
	if !result.EmailDispatched {
		message = submitDegradedMessage
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":             dto.NewTicketResponse(result.Ticket),
		"email_dispatched": result.EmailDispatched,
		"message":          message,
	})
}

// ListMine handles GET /api/support/mine for authenticated submitters.
// The result is always scoped to the caller's own identity.
func (h *SupportHandler) ListMine(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.List(c.Context(), actor, listQueryFromRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// AdminList handles GET /api/support/admin with unrestricted search.
func (h *SupportHandler) AdminList(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.List(c.Context(), actor, listQueryFromRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// AdminUpdateStatus handles PUT /api/support/admin/:id/status.
func (h *SupportHandler) AdminUpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.StatusUpdateInput{AdminNotes: req.AdminNotes}
	if req.Status != nil {
		status, valid := domain.ParseTicketStatus(*req.Status)
		if !valid {
			return apperrors.NewValidationError("invalid status", map[string]any{
				"status": "status must be one of Open, Resolved, Closed",
			})
		}
		input.Status = &status
	}

	ticket, err := h.service.UpdateStatus(c.Context(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    dto.NewTicketResponse(ticket),
		"message": "Ticket " + ticket.ID + " status updated to " + string(ticket.Status) + ".",
	})
}

func listQueryFromRequest(c *fiber.Ctx) service.ListQuery {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	return service.ListQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponses(tickets []domain.SupportTicket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return items
}
