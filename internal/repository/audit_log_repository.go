package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chemconfig-service/internal/domain"
)

// AuditLogRepository persists write-once audit entries. No update or delete
// methods exist: entries are immutable and outlive their subjects.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string, limit, offset int) ([]domain.AuditLogEntry, error)
	ListStatusChanges(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error)
	ListStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time, limit, offset int) ([]domain.AuditLogEntry, error)
	CountStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time) (int64, error)
	ListRecent(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds a Postgres-backed repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

const auditColumns = `id, seq, action, entity_type, entity_id, user_id, user_name, user_role,
               previous_value, new_value, details, recorded_at, ip_address, user_agent`

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (action, entity_type, entity_id, user_id, user_name, user_role,
                                previous_value, new_value, details, recorded_at, ip_address, user_agent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, seq`
	return r.pool.QueryRow(ctx, query,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.UserID,
		entry.UserName,
		entry.UserRole,
		entry.PreviousValue,
		entry.NewValue,
		entry.Details,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.Seq)
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_logs WHERE entity_type=$1 AND entity_id=$2
        ORDER BY recorded_at DESC, seq DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, entityType, entityID, normalizeLimit(limit, 100), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditLogRepository) ListStatusChanges(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_logs WHERE entity_type=$1 AND entity_id=$2 AND action=$3
        ORDER BY recorded_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, domain.EntityTicket, ticketID, domain.ActionStatusChange)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditLogRepository) ListStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time, limit, offset int) ([]domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_logs
        WHERE entity_type=$1 AND entity_id=$2 AND action=$3 AND recorded_at >= $4 AND recorded_at <= $5
        ORDER BY recorded_at ASC, seq ASC LIMIT $6 OFFSET $7`
	rows, err := r.pool.Query(ctx, query,
		domain.EntityTicket, ticketID, domain.ActionStatusChange, from, to,
		normalizeLimit(limit, 20), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditLogRepository) CountStatusChangesInRange(ctx context.Context, ticketID string, from, to time.Time) (int64, error) {
	const query = `
        SELECT COUNT(*) FROM audit_logs
        WHERE entity_type=$1 AND entity_id=$2 AND action=$3 AND recorded_at >= $4 AND recorded_at <= $5`
	var count int64
	err := r.pool.QueryRow(ctx, query, domain.EntityTicket, ticketID, domain.ActionStatusChange, from, to).Scan(&count)
	return count, err
}

func (r *auditLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_logs ORDER BY recorded_at DESC, seq DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, normalizeLimit(limit, 50), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + `
        FROM audit_logs WHERE user_id=$1 ORDER BY recorded_at DESC, seq DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, normalizeLimit(limit, 50), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditLogEntry, error) {
	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Seq,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.UserID,
			&entry.UserName,
			&entry.UserRole,
			&entry.PreviousValue,
			&entry.NewValue,
			&entry.Details,
			&entry.Timestamp,
			&entry.IPAddress,
			&entry.UserAgent,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
