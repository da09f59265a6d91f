package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// InvitationRepository persists hearing invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	// Update writes inv when its stored revision still equals inv.Revision.
	Update(ctx context.Context, inv *domain.Invitation) error
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	ListByDispute(ctx context.Context, disputeID string) ([]domain.Invitation, error)
}

type invitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository builds repository.
func NewInvitationRepository(pool *pgxpool.Pool) InvitationRepository {
	return &invitationRepository{pool: pool}
}

const invitationColumns = `id, dispute_id, invited_by, invitees, claimant_id, defendant_id, date_time,
        location, district, level, status, is_canceled, letter_document, shared_documents,
        revision, created_at, updated_at`

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	const query = `
        INSERT INTO invitations (dispute_id, invited_by, invitees, claimant_id, defendant_id, date_time,
            location, district, level, status, is_canceled, shared_documents)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, revision, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		inv.DisputeID,
		inv.InvitedBy,
		inv.Invitees,
		inv.ClaimantID,
		inv.DefendantID,
		inv.DateTime,
		inv.Location,
		inv.District,
		inv.Level,
		inv.Status,
		inv.IsCanceled,
		inv.SharedDocuments,
	).Scan(&inv.ID, &inv.Revision, &inv.CreatedAt, &inv.UpdatedAt)
}

func (r *invitationRepository) Update(ctx context.Context, inv *domain.Invitation) error {
	const query = `
        UPDATE invitations SET invitees=$1, defendant_id=$2, date_time=$3, location=$4, status=$5,
            is_canceled=$6, letter_document=$7, shared_documents=$8, revision=revision+1, updated_at=NOW()
        WHERE id=$9 AND revision=$10
        RETURNING revision, updated_at`
	err := r.pool.QueryRow(ctx, query,
		inv.Invitees,
		inv.DefendantID,
		inv.DateTime,
		inv.Location,
		inv.Status,
		inv.IsCanceled,
		inv.LetterDocument,
		inv.SharedDocuments,
		inv.ID,
		inv.Revision,
	).Scan(&inv.Revision, &inv.UpdatedAt)
	if err == pgx.ErrNoRows {
		return casMiss(ctx, r.pool, "invitations", "invitation", inv.ID)
	}
	return err
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id=$1`
	var inv domain.Invitation
	if err := scanInvitation(r.pool.QueryRow(ctx, query, id), &inv); err != nil {
		return nil, notFound("invitation", id, err)
	}
	return &inv, nil
}

func (r *invitationRepository) ListByDispute(ctx context.Context, disputeID string) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE dispute_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := scanInvitation(rows, &inv); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func scanInvitation(row pgx.Row, inv *domain.Invitation) error {
	return row.Scan(
		&inv.ID,
		&inv.DisputeID,
		&inv.InvitedBy,
		&inv.Invitees,
		&inv.ClaimantID,
		&inv.DefendantID,
		&inv.DateTime,
		&inv.Location,
		&inv.District,
		&inv.Level,
		&inv.Status,
		&inv.IsCanceled,
		&inv.LetterDocument,
		&inv.SharedDocuments,
		&inv.Revision,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
}
