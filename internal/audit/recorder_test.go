package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/chemconfig-service/internal/domain"
	"github.com/spec-kit/chemconfig-service/internal/observability"
)

type fakeAuditRepo struct {
	entries   []domain.AuditLogEntry
	createErr error
	queryErr  error
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = "entry-1"
	entry.Seq = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.entries, nil
}

func (f *fakeAuditRepo) ListStatusChanges(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.entries, nil
}

func (f *fakeAuditRepo) ListStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time, limit, offset int) ([]domain.AuditLogEntry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.entries, nil
}

func (f *fakeAuditRepo) CountStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time) (int64, error) {
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return int64(len(f.entries)), nil
}

func (f *fakeAuditRepo) ListRecent(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.entries, nil
}

func (f *fakeAuditRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.entries, nil
}

func validInput() Input {
	return Input{
		Action:     domain.ActionCreate,
		EntityType: domain.EntityTicket,
		EntityID:   "t-1",
		UserID:     "u-1",
		UserName:   "Dana Ops",
		UserRole:   domain.RoleRequester,
		Details:    "Ticket created",
	}
}

func TestRecordPersistsEntry(t *testing.T) {
	repo := &fakeAuditRepo{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recorder := NewRecorder(repo, zap.NewNop()).WithClock(func() time.Time { return now })

	entry := recorder.Record(context.Background(), validInput())

	require.NotNil(t, entry)
	assert.Equal(t, "entry-1", entry.ID)
	assert.Equal(t, now, entry.Timestamp)
	require.Len(t, repo.entries, 1)
}

func TestRecordAssignsServerTimestamp(t *testing.T) {
	repo := &fakeAuditRepo{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recorder := NewRecorder(repo, zap.NewNop()).WithClock(func() time.Time { return now })

	entry := recorder.Record(context.Background(), validInput())

	require.NotNil(t, entry)
	assert.Equal(t, now, entry.Timestamp)
}

func TestRecordSanitizesSnapshots(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := NewRecorder(repo, zap.NewNop())

	input := validInput()
	input.PreviousValue = map[string]any{"password": "old", "title": "a"}
	input.NewValue = map[string]any{"token": "new", "title": "b"}

	entry := recorder.Record(context.Background(), input)

	require.NotNil(t, entry)
	assert.Equal(t, RedactionMarker, entry.PreviousValue["password"])
	assert.Equal(t, "a", entry.PreviousValue["title"])
	assert.Equal(t, RedactionMarker, entry.NewValue["token"])
}

func TestRecordDropsIncompleteInput(t *testing.T) {
	cases := map[string]func(*Input){
		"missing action":      func(in *Input) { in.Action = "" },
		"missing entity type": func(in *Input) { in.EntityType = "" },
		"missing entity id":   func(in *Input) { in.EntityID = "" },
		"missing user id":     func(in *Input) { in.UserID = "" },
		"invalid action":      func(in *Input) { in.Action = "EXPLODE" },
		"invalid entity type": func(in *Input) { in.EntityType = "WAREHOUSE" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &fakeAuditRepo{}
			metrics := observability.NewMetrics()
			recorder := NewRecorder(repo, zap.NewNop()).WithMetrics(metrics)

			input := validInput()
			mutate(&input)

			assert.Nil(t, recorder.Record(context.Background(), input))
			assert.Empty(t, repo.entries)
			assert.Equal(t, int64(1), metrics.AuditDropped())
		})
	}
}

func TestRecordSwallowsPersistenceFailure(t *testing.T) {
	repo := &fakeAuditRepo{createErr: errors.New("connection refused")}
	metrics := observability.NewMetrics()
	recorder := NewRecorder(repo, zap.NewNop()).WithMetrics(metrics)

	entry := recorder.Record(context.Background(), validInput())

	assert.Nil(t, entry)
	assert.Equal(t, int64(1), metrics.AuditDropped())
}

func TestQueriesReturnEmptyOnError(t *testing.T) {
	repo := &fakeAuditRepo{queryErr: errors.New("connection refused")}
	recorder := NewRecorder(repo, zap.NewNop())
	ctx := context.Background()

	assert.Empty(t, recorder.EntityLogs(ctx, domain.EntityTicket, "t-1", 10, 0))
	assert.Empty(t, recorder.StatusHistory(ctx, "t-1"))
	assert.Empty(t, recorder.RecentActivity(ctx, 10, 0))
	assert.Empty(t, recorder.UserActivity(ctx, "u-1", 10, 0))

	total, entries := recorder.StatusHistoryInRange(ctx, "t-1", time.Now().AddDate(0, 0, -30), time.Now(), 10, 0)
	assert.Zero(t, total)
	assert.Empty(t, entries)
}

func TestQueriesRejectBlankIdentifiers(t *testing.T) {
	repo := &fakeAuditRepo{entries: []domain.AuditLogEntry{{ID: "e"}}}
	recorder := NewRecorder(repo, zap.NewNop())
	ctx := context.Background()

	assert.Empty(t, recorder.EntityLogs(ctx, domain.EntityTicket, "", 10, 0))
	assert.Empty(t, recorder.StatusHistory(ctx, ""))
	assert.Empty(t, recorder.UserActivity(ctx, "", 10, 0))
}
