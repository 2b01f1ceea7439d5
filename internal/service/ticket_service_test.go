package service

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/chemconfig-service/internal/audit"
	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/repository"
	apperrors "github.com/spec-kit/chemconfig-service/pkg/util"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	f.nextID++
	ticket.ID = "ticket-" + strconv.Itoa(f.nextID)
	ticket.RequestDate = time.Now()
	ticket.UpdatedAt = ticket.RequestDate
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	return nil
}

func (f *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	out := []domain.Ticket{}
	for _, t := range f.tickets {
		if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTicketRepo) CountWithFilter(ctx context.Context, filter repository.TicketFilter) (int64, error) {
	list, _ := f.ListWithFilter(ctx, filter)
	return int64(len(list)), nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = "user-" + strconv.Itoa(len(f.users)+1)
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeUserRepo) TouchLastLogin(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	return nil
}

type recordingAuditRepo struct {
	entries []domain.AuditLogEntry
}

func (f *recordingAuditRepo) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	entry.Seq = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *recordingAuditRepo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	return f.entries, nil
}

func (f *recordingAuditRepo) ListStatusChanges(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	out := []domain.AuditLogEntry{}
	for _, e := range f.entries {
		if e.Action == domain.ActionStatusChange && e.EntityID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *recordingAuditRepo) ListStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time, limit, offset int) ([]domain.AuditLogEntry, error) {
	return f.ListStatusChanges(ctx, ticketID)
}

func (f *recordingAuditRepo) CountStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time) (int64, error) {
	entries, _ := f.ListStatusChanges(ctx, ticketID)
	return int64(len(entries)), nil
}

func (f *recordingAuditRepo) ListRecent(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error) {
	return f.entries, nil
}

func (f *recordingAuditRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	out := []domain.AuditLogEntry{}
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fixture struct {
	service   *TicketService
	tickets   *fakeTicketRepo
	users     *fakeUserRepo
	auditRepo *recordingAuditRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tickets := newFakeTicketRepo()
	users := &fakeUserRepo{users: map[string]*domain.User{
		"req-1": {ID: "req-1", Username: "dana", FullName: "Dana Ops", Role: domain.RoleRequester, Department: domain.DepartmentProduction},
		"req-2": {ID: "req-2", Username: "riley", FullName: "Riley Line", Role: domain.RoleRequester, Department: domain.DepartmentQuality},
		"app-1": {ID: "app-1", Username: "sam", FullName: "Sam Lead", Role: domain.RoleApprover, Department: domain.DepartmentEngineering},
		"adm-1": {ID: "adm-1", Username: "alex", FullName: "Alex Admin", Role: domain.RoleAdmin, Department: domain.DepartmentEngineering},
	}}
	auditRepo := &recordingAuditRepo{}
	recorder := audit.NewRecorder(auditRepo, zap.NewNop())

	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Recorder:   recorder,
	})
	return &fixture{service: svc, tickets: tickets, users: users, auditRepo: auditRepo}
}

func principalFor(f *fixture, id string) domain.Principal {
	return domain.PrincipalOf(f.users.users[id])
}

const validConfig = `{"machineId":"MX-7","machineName":"Mixer 7","chemicalType":"NaOH","concentration":12.5}`

func createDraft(t *testing.T, f *fixture, ownerID string) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), principalFor(f, ownerID), TicketCreateInput{
		Title:              "Caustic dosing change",
		ChemicalConfigJSON: validConfig,
	}, RequestMeta{})
	require.NoError(t, err)
	return ticket
}

func actionsOf(entries []domain.AuditLogEntry) []domain.AuditAction {
	actions := make([]domain.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestCreateTicketStartsAsDraft(t *testing.T) {
	f := newFixture(t)

	ticket := createDraft(t, f, "req-1")

	assert.Equal(t, domain.TicketStatusDraft, ticket.Status)
	assert.Equal(t, "req-1", ticket.RequesterID)
	assert.Equal(t, domain.DepartmentProduction, ticket.Department)

	require.Len(t, f.auditRepo.entries, 1)
	entry := f.auditRepo.entries[0]
	assert.Equal(t, domain.ActionCreate, entry.Action)
	assert.Equal(t, domain.EntityTicket, entry.EntityType)
	assert.Equal(t, ticket.ID, entry.EntityID)
	assert.Equal(t, "DRAFT", entry.NewValue["status"])
}

func TestCreateTicketRequiresChemicalConfig(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateTicket(context.Background(), principalFor(f, "req-1"), TicketCreateInput{
		Title: "No config",
	}, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, f.auditRepo.entries)
}

func TestCreateTicketRejectsMalformedConfig(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateTicket(context.Background(), principalFor(f, "req-1"), TicketCreateInput{
		Title:              "Bad config",
		ChemicalConfigJSON: `{"machineId":`,
	}, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestRequesterSubmitsOwnDraft(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	pending := domain.TicketStatusPending
	updated, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Status: &pending}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, updated.Status)

	actions := actionsOf(f.auditRepo.entries)
	assert.Equal(t, []domain.AuditAction{domain.ActionCreate, domain.ActionStatusChange}, actions)

	statusEntry := f.auditRepo.entries[1]
	assert.Equal(t, domain.TicketStatusDraft, statusEntry.PreviousValue["status"])
	assert.Equal(t, domain.TicketStatusPending, statusEntry.NewValue["status"])
	assert.Equal(t, "Status changed from DRAFT to PENDING", statusEntry.Details)
}

func TestNonOwnerRequesterCannotTouchTicket(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")
	entriesBefore := len(f.auditRepo.entries)

	pending := domain.TicketStatusPending
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-2"), ticket.ID,
		TicketPatch{Status: &pending}, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	assert.Len(t, f.auditRepo.entries, entriesBefore)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDraft, stored.Status)
}

func TestApproverRejectsPendingTicket(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	pending := domain.TicketStatusPending
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Status: &pending}, RequestMeta{})
	require.NoError(t, err)

	rejected := domain.TicketStatusRejected
	updated, err := f.service.UpdateTicket(context.Background(), principalFor(f, "app-1"), ticket.ID,
		TicketPatch{Status: &rejected}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, updated.Status)

	actions := actionsOf(f.auditRepo.entries)
	assert.Equal(t, []domain.AuditAction{
		domain.ActionCreate,
		domain.ActionStatusChange,
		domain.ActionStatusChange,
		domain.ActionReject,
	}, actions)
}

func TestApproverCannotDecideDraft(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	approved := domain.TicketStatusApproved
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "app-1"), ticket.ID,
		TicketPatch{Status: &approved}, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestAdminApprovalEmitsStatusChangeAndApprove(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	pending := domain.TicketStatusPending
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Status: &pending}, RequestMeta{})
	require.NoError(t, err)
	entriesBefore := len(f.auditRepo.entries)

	approved := domain.TicketStatusApproved
	_, err = f.service.UpdateTicket(context.Background(), principalFor(f, "adm-1"), ticket.ID,
		TicketPatch{Status: &approved}, RequestMeta{})
	require.NoError(t, err)

	emitted := f.auditRepo.entries[entriesBefore:]
	assert.Equal(t, []domain.AuditAction{domain.ActionStatusChange, domain.ActionApprove}, actionsOf(emitted))
	assert.Equal(t, "Ticket approved", emitted[1].Details)
}

func TestFieldUpdateEmitsSingleUpdateEntry(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")
	entriesBefore := len(f.auditRepo.entries)

	title := "Revised dosing change"
	updated, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Title: &title}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	emitted := f.auditRepo.entries[entriesBefore:]
	require.Len(t, emitted, 1)
	assert.Equal(t, domain.ActionUpdate, emitted[0].Action)
	assert.Equal(t, "Caustic dosing change", emitted[0].PreviousValue["title"])
	assert.Equal(t, title, emitted[0].NewValue["title"])
}

func TestUpdateAbortsOnMalformedConfigBeforeMutation(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")
	entriesBefore := len(f.auditRepo.entries)

	title := "Should not land"
	bad := `{"machineId":`
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Title: &title, ChemicalConfigJSON: &bad}, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Len(t, f.auditRepo.entries, entriesBefore)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Caustic dosing change", stored.Title)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	bogus := domain.TicketStatus("ARCHIVED")
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Status: &bogus}, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestDeleteTicketKeepsAuditTrail(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	err := f.service.DeleteTicket(context.Background(), principalFor(f, "req-1"), ticket.ID, RequestMeta{})
	require.NoError(t, err)

	_, err = f.tickets.GetByID(context.Background(), ticket.ID)
	assert.Error(t, err)

	last := f.auditRepo.entries[len(f.auditRepo.entries)-1]
	assert.Equal(t, domain.ActionDelete, last.Action)
	assert.Equal(t, ticket.ID, last.EntityID)
	assert.Equal(t, "Caustic dosing change", last.PreviousValue["title"])
}

func TestDeleteTicketAdminOnlyFlag(t *testing.T) {
	f := newFixture(t)
	f.service.deleteAdminOnly = true
	ticket := createDraft(t, f, "req-1")

	err := f.service.DeleteTicket(context.Background(), principalFor(f, "req-1"), ticket.ID, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	err = f.service.DeleteTicket(context.Background(), principalFor(f, "adm-1"), ticket.ID, RequestMeta{})
	require.NoError(t, err)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetTicket(context.Background(), principalFor(f, "req-1"), "missing")

	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestListTicketsScopesRequesterToOwn(t *testing.T) {
	f := newFixture(t)
	createDraft(t, f, "req-1")
	createDraft(t, f, "req-2")

	page, err := f.service.ListTickets(context.Background(), principalFor(f, "req-1"), TicketListFilter{})
	require.NoError(t, err)

	require.Len(t, page.Tickets, 1)
	assert.Equal(t, "req-1", page.Tickets[0].RequesterID)
	assert.Equal(t, int64(1), page.Total)
}

func TestListTicketsDefaultsToThirtyDayWindow(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service.WithClock(func() time.Time { return now })

	page, err := f.service.ListTickets(context.Background(), principalFor(f, "adm-1"), TicketListFilter{})
	require.NoError(t, err)

	assert.Equal(t, now, page.EndDate)
	assert.Equal(t, now.AddDate(0, 0, -30), page.StartDate)
}

func TestStatusHistoryReadsOldestFirst(t *testing.T) {
	f := newFixture(t)
	ticket := createDraft(t, f, "req-1")

	pending := domain.TicketStatusPending
	_, err := f.service.UpdateTicket(context.Background(), principalFor(f, "req-1"), ticket.ID,
		TicketPatch{Status: &pending}, RequestMeta{})
	require.NoError(t, err)

	approved := domain.TicketStatusApproved
	_, err = f.service.UpdateTicket(context.Background(), principalFor(f, "adm-1"), ticket.ID,
		TicketPatch{Status: &approved}, RequestMeta{})
	require.NoError(t, err)

	queries := NewAuditQueryService(audit.NewRecorder(f.auditRepo, zap.NewNop()))
	page, err := queries.TicketStatusHistory(context.Background(), principalFor(f, "req-1"), ticket.ID, nil, nil, 1, 20)
	require.NoError(t, err)

	require.Len(t, page.Entries, 2)
	assert.Equal(t, domain.TicketStatusPending, page.Entries[0].NewValue["status"])
	assert.Equal(t, domain.TicketStatusApproved, page.Entries[1].NewValue["status"])
	assert.Equal(t, int64(2), page.Total)
}

func TestAuditQueriesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	queries := NewAuditQueryService(audit.NewRecorder(f.auditRepo, zap.NewNop()))
	ctx := context.Background()

	_, err := queries.TicketLogs(ctx, principalFor(f, "req-1"), "t-1", 10, 0)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = queries.RecentActivity(ctx, principalFor(f, "app-1"), 10, 0)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = queries.UserActivity(ctx, principalFor(f, "req-1"), "req-2", 10, 0)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = queries.UserActivity(ctx, principalFor(f, "req-1"), "req-1", 10, 0)
	assert.NoError(t, err)

	_, err = queries.TicketLogs(ctx, principalFor(f, "adm-1"), "t-1", 10, 0)
	assert.NoError(t, err)
}
