package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// UserRepository defines persistence access for actors.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// Update writes the user when its stored revision still equals user.Revision.
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByContact(ctx context.Context, contact string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, full_name, phone_number, email, national_id, base_role,
        level_role, level_account_role, level_is_switch, level_district,
        account_status, suspended_by, suspension_reason, suspended_at,
        revision, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (full_name, phone_number, email, national_id, base_role,
            level_role, level_account_role, level_is_switch, level_district, account_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, revision, created_at, updated_at`
	lvl := levelColumns(user.Level)
	return r.pool.QueryRow(ctx, query,
		user.FullName,
		nullable(user.PhoneNumber),
		nullable(user.Email),
		nullable(user.NationalID),
		user.BaseRole,
		lvl.role,
		lvl.accountRole,
		lvl.isSwitch,
		lvl.district,
		user.AccountStatus,
	).Scan(&user.ID, &user.Revision, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET full_name=$1, phone_number=$2, email=$3, national_id=$4, base_role=$5,
            level_role=$6, level_account_role=$7, level_is_switch=$8, level_district=$9,
            account_status=$10, suspended_by=$11, suspension_reason=$12, suspended_at=$13,
            revision=revision+1, updated_at=NOW()
        WHERE id=$14 AND revision=$15
        RETURNING revision, updated_at`
	lvl := levelColumns(user.Level)
	var (
		suspendedBy *string
		reason      *string
		suspendedAt *time.Time
	)
	if user.Suspension != nil {
		suspendedBy = &user.Suspension.SuspendedBy
		reason = &user.Suspension.Reason
		suspendedAt = &user.Suspension.SuspendedAt
	}
	err := r.pool.QueryRow(ctx, query,
		user.FullName,
		nullable(user.PhoneNumber),
		nullable(user.Email),
		nullable(user.NationalID),
		user.BaseRole,
		lvl.role,
		lvl.accountRole,
		lvl.isSwitch,
		lvl.district,
		user.AccountStatus,
		suspendedBy,
		reason,
		suspendedAt,
		user.ID,
		user.Revision,
	).Scan(&user.Revision, &user.UpdatedAt)
	if err == pgx.ErrNoRows {
		return casMiss(ctx, r.pool, "users", "user", user.ID)
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return user, nil
}

func (r *userRepository) GetByContact(ctx context.Context, contact string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number=$1 OR LOWER(email)=LOWER($1) LIMIT 1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, contact))
	if err != nil {
		return nil, notFound("user", contact, err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user                          domain.User
		phone, email, nationalID      *string
		levelRole                     *domain.Role
		accountRole                   *domain.Role
		isSwitch                      bool
		district                      *string
		suspendedBy, suspensionReason *string
		suspendedAt                   *time.Time
	)
	if err := row.Scan(
		&user.ID,
		&user.FullName,
		&phone,
		&email,
		&nationalID,
		&user.BaseRole,
		&levelRole,
		&accountRole,
		&isSwitch,
		&district,
		&user.AccountStatus,
		&suspendedBy,
		&suspensionReason,
		&suspendedAt,
		&user.Revision,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.PhoneNumber = deref(phone)
	user.Email = deref(email)
	user.NationalID = deref(nationalID)
	if levelRole != nil {
		user.Level = &domain.Level{
			Role:        *levelRole,
			AccountRole: accountRole,
			IsSwitch:    isSwitch,
			District:    district,
		}
	}
	if suspendedAt != nil {
		user.Suspension = &domain.Suspension{
			SuspendedBy: deref(suspendedBy),
			Reason:      deref(suspensionReason),
			SuspendedAt: *suspendedAt,
		}
	}
	return &user, nil
}

type levelRow struct {
	role        *domain.Role
	accountRole *domain.Role
	isSwitch    bool
	district    *string
}

func levelColumns(level *domain.Level) levelRow {
	if level == nil {
		return levelRow{}
	}
	role := level.Role
	return levelRow{
		role:        &role,
		accountRole: level.AccountRole,
		isSwitch:    level.IsSwitch,
		district:    level.District,
	}
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
