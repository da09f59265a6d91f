package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// DisputeFilter captures listing parameters.
type DisputeFilter struct {
	District *string
	PartyID  *string
	// IncludePartyID widens District: cases where this user is a party match
	// regardless of district.
	IncludePartyID *string
	Statuses   []domain.DisputeStatus
	UPI        *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// DisputeRepository encapsulates dispute and version persistence.
type DisputeRepository interface {
	// Create stores the dispute together with its first version record.
	Create(ctx context.Context, dispute *domain.Dispute, initial *domain.CaseVersion) error
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)
	List(ctx context.Context, filter DisputeFilter) ([]domain.Dispute, error)
	CountByStatus(ctx context.Context, district *string) (map[domain.DisputeStatus]int, error)
	// SaveVersion applies dispute and appends version atomically. It succeeds only when
	// the stored counter equals version.Version-1.
	SaveVersion(ctx context.Context, dispute *domain.Dispute, version *domain.CaseVersion) error
	ListVersions(ctx context.Context, disputeID string) ([]domain.CaseVersion, error)
}

type disputeRepository struct {
	pool *pgxpool.Pool
}

// NewDisputeRepository instantiates repository.
func NewDisputeRepository(pool *pgxpool.Pool) DisputeRepository {
	return &disputeRepository{pool: pool}
}

const disputeColumns = `id, claimant_id, defendant_id, upi, category, level, district, title,
        description, attachments, location, status, created_by, current_version, created_at, updated_at`

func (r *disputeRepository) Create(ctx context.Context, dispute *domain.Dispute, initial *domain.CaseVersion) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertDispute = `
            INSERT INTO disputes (claimant_id, defendant_id, upi, category, level, district, title,
                description, attachments, location, status, created_by, current_version)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1)
            RETURNING id, current_version, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertDispute,
			dispute.ClaimantID,
			dispute.DefendantID,
			dispute.UPI,
			dispute.Category,
			dispute.Level,
			dispute.District,
			dispute.Title,
			dispute.Description,
			dispute.Attachments,
			dispute.Location,
			dispute.Status,
			dispute.CreatedBy,
		).Scan(&dispute.ID, &dispute.CurrentVersion, &dispute.CreatedAt, &dispute.UpdatedAt); err != nil {
			return err
		}
		initial.DisputeID = dispute.ID
		initial.Version = 1
		return insertVersion(ctx, tx, initial)
	})
}

func (r *disputeRepository) SaveVersion(ctx context.Context, dispute *domain.Dispute, version *domain.CaseVersion) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const update = `
            UPDATE disputes SET defendant_id=$1, title=$2, description=$3, attachments=$4, location=$5,
                status=$6, current_version=$7, updated_at=NOW()
            WHERE id=$8 AND current_version=$9
            RETURNING updated_at`
		err := tx.QueryRow(ctx, update,
			dispute.DefendantID,
			dispute.Title,
			dispute.Description,
			dispute.Attachments,
			dispute.Location,
			dispute.Status,
			version.Version,
			dispute.ID,
			version.Version-1,
		).Scan(&dispute.UpdatedAt)
		if err == pgx.ErrNoRows {
			return casMiss(ctx, tx, "disputes", "dispute", dispute.ID)
		}
		if err != nil {
			return err
		}
		version.DisputeID = dispute.ID
		if err := insertVersion(ctx, tx, version); err != nil {
			return err
		}
		dispute.CurrentVersion = version.Version
		return nil
	})
}

func insertVersion(ctx context.Context, tx pgx.Tx, version *domain.CaseVersion) error {
	const query = `
        INSERT INTO dispute_versions (dispute_id, version, changes, changed_by, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	return tx.QueryRow(ctx, query,
		version.DisputeID,
		version.Version,
		version.Changes,
		version.ChangedBy,
		version.Reason,
	).Scan(&version.ID, &version.ChangedAt)
}

func (r *disputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id=$1`
	var dispute domain.Dispute
	if err := scanDispute(r.pool.QueryRow(ctx, query, id), &dispute); err != nil {
		return nil, notFound("dispute", id, err)
	}
	return &dispute, nil
}

func (r *disputeRepository) List(ctx context.Context, filter DisputeFilter) ([]domain.Dispute, error) {
	clauses, args := disputeClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		disputeColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Dispute
	for rows.Next() {
		var dispute domain.Dispute
		if err := scanDispute(rows, &dispute); err != nil {
			return nil, err
		}
		result = append(result, dispute)
	}
	return result, rows.Err()
}

func (r *disputeRepository) CountByStatus(ctx context.Context, district *string) (map[domain.DisputeStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM disputes`
	args := []any{}
	if district != nil {
		query += ` WHERE district=$1`
		args = append(args, *district)
	}
	query += ` GROUP BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DisputeStatus]int)
	for rows.Next() {
		var (
			status domain.DisputeStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *disputeRepository) ListVersions(ctx context.Context, disputeID string) ([]domain.CaseVersion, error) {
	const query = `
        SELECT id, dispute_id, version, changes, changed_by, changed_at, reason
        FROM dispute_versions WHERE dispute_id=$1 ORDER BY version ASC`
	rows, err := r.pool.Query(ctx, query, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseVersion
	for rows.Next() {
		var version domain.CaseVersion
		if err := rows.Scan(
			&version.ID,
			&version.DisputeID,
			&version.Version,
			&version.Changes,
			&version.ChangedBy,
			&version.ChangedAt,
			&version.Reason,
		); err != nil {
			return nil, err
		}
		result = append(result, version)
	}
	return result, rows.Err()
}

func disputeClauses(filter DisputeFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	switch {
	case filter.District != nil && filter.IncludePartyID != nil:
		args = append(args, *filter.District, *filter.IncludePartyID)
		d, p := fmt.Sprintf("$%d", len(args)-1), fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(district=%s OR created_by=%s OR claimant_id=%s OR defendant_id=%s)", d, p, p, p))
	case filter.District != nil:
		args = append(args, *filter.District)
		clauses = append(clauses, fmt.Sprintf("district=$%d", len(args)))
	}
	if filter.PartyID != nil {
		args = append(args, *filter.PartyID)
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(created_by=%s OR claimant_id=%s OR defendant_id=%s)", p, p, p))
	}
	if filter.UPI != nil {
		args = append(args, *filter.UPI)
		clauses = append(clauses, fmt.Sprintf("upi=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}
	return clauses, args
}

func scanDispute(row pgx.Row, dispute *domain.Dispute) error {
	return row.Scan(
		&dispute.ID,
		&dispute.ClaimantID,
		&dispute.DefendantID,
		&dispute.UPI,
		&dispute.Category,
		&dispute.Level,
		&dispute.District,
		&dispute.Title,
		&dispute.Description,
		&dispute.Attachments,
		&dispute.Location,
		&dispute.Status,
		&dispute.CreatedBy,
		&dispute.CurrentVersion,
		&dispute.CreatedAt,
		&dispute.UpdatedAt,
	)
}
