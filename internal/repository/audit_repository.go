package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// AuditRepository stores audit entries in the audit_log table.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByTarget(ctx context.Context, targetType domain.TargetType, targetID string, limit int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_log (action, actor_id, target_id, target_type, details, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		entry.Action,
		entry.ActorID,
		entry.TargetID,
		entry.TargetType,
		entry.Details,
		entry.Timestamp,
	).Scan(&entry.ID)
}

func (r *auditRepository) ListByTarget(ctx context.Context, targetType domain.TargetType, targetID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, action, actor_id, target_id, target_type, details, created_at
        FROM audit_log WHERE target_type=$1 AND target_id=$2 ORDER BY created_at ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, targetType, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ActorID,
			&entry.TargetID,
			&entry.TargetType,
			&entry.Details,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
