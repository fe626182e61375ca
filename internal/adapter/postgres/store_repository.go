package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type storeRepository struct {
	db DB
}

func NewStoreRepository(db DB) interfaces.StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) FindByID(ctx context.Context, id int64) (*domain.Store, error) {
	return r.find(ctx, `SELECT id, slug, name FROM stores WHERE id = $1`, id)
}

func (r *storeRepository) FindBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	return r.find(ctx, `SELECT id, slug, name FROM stores WHERE slug = $1`, slug)
}

func (r *storeRepository) find(ctx context.Context, query string, arg any) (*domain.Store, error) {
	var store domain.Store
	err := r.db.QueryRow(ctx, query, arg).Scan(&store.ID, &store.Slug, &store.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	return &store, nil
}
