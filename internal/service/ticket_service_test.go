package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bazzarnet/support-service/internal/domain"
	"github.com/bazzarnet/support-service/internal/repository"
	apperrors "github.com/bazzarnet/support-service/pkg/util"
)

type fakeTicketRepo struct {
	mu         sync.Mutex
	seq        int
	base       time.Time
	tickets    map[string]domain.SupportTicket
	failCreate bool
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		base:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		tickets: make(map[string]domain.SupportTicket),
	}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.SupportTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("insert failed")
	}
	f.seq++
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = f.base.Add(time.Duration(f.seq) * time.Minute)
	ticket.UpdatedAt = ticket.CreatedAt
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.SupportTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now().UTC()
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.SupportTicket
	for _, ticket := range f.tickets {
		if filter.SubmitterEmail != nil &&
			!strings.EqualFold(strings.TrimSpace(*filter.SubmitterEmail), ticket.Email) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.SearchTerm != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			haystack := strings.ToLower(ticket.Name + "\x00" + ticket.Email + "\x00" + ticket.Subject + "\x00" + ticket.Message)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type sentMail struct {
	To      string
	Subject string
	Plain   string
	HTML    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeSender) Send(_ context.Context, to, subject, plain, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Plain: plain, HTML: html})
	return nil
}

func newTestService(repo *fakeTicketRepo, sender *fakeSender) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Mail:       sender,
		AdminEmail: "admin@bazzarnet.example",
		Logger:     zap.NewNop(),
	})
}

func adminActor() domain.Actor {
	return domain.Actor{ID: "admin-1", Name: "Admin", Email: "admin@bazzarnet.example", Role: domain.RoleAdmin}
}

func submitValid(t *testing.T, svc *TicketService) *domain.SupportTicket {
	t.Helper()
	result, err := svc.Submit(context.Background(), SubmitInput{
		Name:    "Asha",
		Email:   "asha@x.com",
		Role:    "customer",
		Subject: "Late delivery",
		Message: "Order #9 arrived 3 days late",
	})
	require.NoError(t, err)
	return result.Ticket
}

func TestSubmitCreatesOpenTicket(t *testing.T) {
	repo := newFakeTicketRepo()
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	result, err := svc.Submit(context.Background(), SubmitInput{
		Name:    "Asha",
		Email:   "asha@x.com",
		Role:    "customer",
		Subject: "Late delivery",
		Message: "Order #9 arrived 3 days late",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Ticket)

	ticket := result.Ticket
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.RoleCustomer, ticket.Role)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.ResolvedBy)
	assert.Nil(t, ticket.AdminNotes)
	assert.True(t, result.EmailDispatched)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "admin@bazzarnet.example", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "Late delivery")
	assert.Contains(t, sender.sent[0].HTML, ticket.ID)
}

func TestSubmitDefaultsToGuestRole(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), &fakeSender{})

	result, err := svc.Submit(context.Background(), SubmitInput{
		Name:    "Visitor",
		Email:   "visitor@x.com",
		Subject: "Question",
		Message: "How do I change my pincode?",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, result.Ticket.Role)
}

func TestSubmitValidationFailures(t *testing.T) {
	repo := newFakeTicketRepo()
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	tests := []struct {
		name  string
		input SubmitInput
		field string
	}{
		{"empty subject", SubmitInput{Name: "A", Email: "a@x.com", Subject: "  ", Message: "m"}, "subject"},
		{"empty message", SubmitInput{Name: "A", Email: "a@x.com", Subject: "s", Message: ""}, "message"},
		{"empty name", SubmitInput{Name: "", Email: "a@x.com", Subject: "s", Message: "m"}, "name"},
		{"bad email", SubmitInput{Name: "A", Email: "not-an-email", Subject: "s", Message: "m"}, "email"},
		{"bad role", SubmitInput{Name: "A", Email: "a@x.com", Role: "superuser", Subject: "s", Message: "m"}, "role"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.input)
			require.Error(t, err)
			var de *apperrors.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "VALIDATION_FAILED", de.Code)
			assert.Contains(t, de.Details, tc.field)
		})
	}
	assert.Empty(t, repo.tickets, "no ticket may exist after a rejected submission")
	assert.Empty(t, sender.sent)
}

func TestSubmitMailFailureStillStoresTicket(t *testing.T) {
	repo := newFakeTicketRepo()
	sender := &fakeSender{fail: true}
	svc := newTestService(repo, sender)

	result, err := svc.Submit(context.Background(), SubmitInput{
		Name: "Asha", Email: "asha@x.com", Subject: "s", Message: "m",
	})
	require.NoError(t, err, "dispatch failure must not fail the submission")
	assert.False(t, result.EmailDispatched)
	assert.Len(t, repo.tickets, 1)
}

func TestSubmitPersistenceFailureSendsNoMail(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.failCreate = true
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Name: "Asha", Email: "asha@x.com", Subject: "s", Message: "m",
	})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func strPtr(s string) *string { return &s }

func TestResolveStampsResolutionMetadata(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	ticket := submitValid(t, svc)

	updated, err := svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.ResolvedBy)
	assert.Equal(t, "admin-1", *updated.ResolvedBy)
	assert.WithinDuration(t, time.Now(), *updated.ResolvedAt, time.Minute)
}

func TestReResolveKeepsOriginalStamp(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	ticket := submitValid(t, svc)

	first, err := svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)

	other := domain.Actor{ID: "admin-2", Email: "other@bazzarnet.example", Role: domain.RoleAdmin}
	second, err := svc.UpdateStatus(context.Background(), other, ticket.ID, StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, *first.ResolvedAt, *second.ResolvedAt)
	assert.Equal(t, "admin-1", *second.ResolvedBy, "re-resolving must not reassign the resolver")
}

func TestLeavingResolvedClearsMetadata(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	ticket := submitValid(t, svc)

	_, err := svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
		Status:     statusPtr(domain.TicketStatusResolved),
		AdminNotes: strPtr("called the vendor"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	assert.Nil(t, updated.ResolvedAt)
	assert.Nil(t, updated.ResolvedBy)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "called the vendor", *updated.AdminNotes, "notes survive a status-only update")
}

func TestNotesOnlyUpdateLeavesStatusAlone(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	ticket := submitValid(t, svc)

	updated, err := svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
		AdminNotes: strPtr("waiting for the courier report"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "waiting for the courier report", *updated.AdminNotes)

	// Explicit empty string overwrites, unlike omission.
	updated, err = svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
		AdminNotes: strPtr(""),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AdminNotes)
	assert.Empty(t, *updated.AdminNotes)
}

func TestUpdateStatusUnknownTicket(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), &fakeSender{})

	_, err := svc.UpdateStatus(context.Background(), adminActor(), uuid.NewString(), StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NOT_FOUND", de.Code)
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	ticket := submitValid(t, svc)

	customer := domain.Actor{ID: "u1", Email: "asha@x.com", Role: domain.RoleCustomer}
	_, err := svc.UpdateStatus(context.Background(), customer, ticket.ID, StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	stored, getErr := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status, "rejected update must not mutate")
}

func seedTickets(t *testing.T, svc *TicketService) {
	t.Helper()
	inputs := []SubmitInput{
		{Name: "Asha", Email: "asha@x.com", Role: "customer", Subject: "Late delivery", Message: "Order #9 arrived 3 days late"},
		{Name: "Bert", Email: "bert@y.com", Role: "vendor", Subject: "Payout missing", Message: "Please refund the commission charge"},
		{Name: "Cara", Email: "cara@z.com", Role: "customer", Subject: "REFUND request", Message: "Item was damaged"},
		{Name: "Asha", Email: "asha@x.com", Role: "customer", Subject: "Broken listing", Message: "Store page does not load"},
	}
	for _, in := range inputs {
		_, err := svc.Submit(context.Background(), in)
		require.NoError(t, err)
	}
}

func TestListScopesNonAdminToOwnTickets(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), &fakeSender{})
	seedTickets(t, svc)

	asha := domain.Actor{ID: "u1", Email: "asha@x.com", Role: domain.RoleCustomer}
	tickets, err := svc.List(context.Background(), asha, ListQuery{})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.Equal(t, "asha@x.com", ticket.Email)
	}

	// Filters never widen the scope.
	tickets, err = svc.List(context.Background(), asha, ListQuery{Search: "refund", Status: domain.StatusFilterAll})
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, "asha@x.com", ticket.Email)
	}
}

func TestAdminSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), &fakeSender{})
	seedTickets(t, svc)

	tickets, err := svc.List(context.Background(), adminActor(), ListQuery{Search: "refund"})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	subjects := []string{tickets[0].Subject, tickets[1].Subject}
	assert.Contains(t, subjects, "REFUND request")
	assert.Contains(t, subjects, "Payout missing")
}

func TestAdminListNewestFirst(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), &fakeSender{})
	seedTickets(t, svc)

	tickets, err := svc.List(context.Background(), adminActor(), ListQuery{})
	require.NoError(t, err)
	require.Len(t, tickets, 4)
	for i := 1; i < len(tickets); i++ {
		assert.False(t, tickets[i].CreatedAt.After(tickets[i-1].CreatedAt))
	}
}

func TestListStatusFilter(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	seedTickets(t, svc)

	all, err := svc.List(context.Background(), adminActor(), ListQuery{})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), adminActor(), all[0].ID, StatusUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)

	resolved, err := svc.List(context.Background(), adminActor(), ListQuery{Status: "Resolved"})
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	unfiltered, err := svc.List(context.Background(), adminActor(), ListQuery{Status: domain.StatusFilterAll})
	require.NoError(t, err)
	assert.Len(t, unfiltered, 4)

	_, err = svc.List(context.Background(), adminActor(), ListQuery{Status: "Reopened"})
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestGuestCannotList(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), &fakeSender{})

	_, err := svc.List(context.Background(), domain.Anonymous(), ListQuery{})
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)
}

func TestResolutionInvariantAlwaysHolds(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo, &fakeSender{})
	ticket := submitValid(t, svc)

	transitions := []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusOpen,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusOpen,
	}
	for _, next := range transitions {
		updated, err := svc.UpdateStatus(context.Background(), adminActor(), ticket.ID, StatusUpdateInput{
			Status: statusPtr(next),
		})
		require.NoError(t, err)
		if updated.Status == domain.TicketStatusResolved {
			assert.NotNil(t, updated.ResolvedAt)
			assert.NotNil(t, updated.ResolvedBy)
		} else {
			assert.Nil(t, updated.ResolvedAt)
			assert.Nil(t, updated.ResolvedBy)
		}
	}
}
