package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispute-service/internal/domain"
)

func notFound(resource, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return err
}

// casMiss resolves a zero-row conditional update into not-found or a lost race.
func casMiss(ctx context.Context, q querier, table, resource, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id=$1)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return domain.ErrConcurrentModification
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ querier = (*pgxpool.Pool)(nil)
