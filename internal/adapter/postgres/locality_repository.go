package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type localityRepository struct {
	db DB
}

func NewLocalityRepository(db DB) interfaces.LocalityRepository {
	return &localityRepository{db: db}
}

func (r *localityRepository) FindTileByCode(ctx context.Context, publicCode string) (*domain.QRTile, error) {
	var tile domain.QRTile
	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, public_code, table_id, is_active
		FROM qr_tiles WHERE public_code = $1
	`, publicCode).Scan(&tile.ID, &tile.StoreID, &tile.PublicCode, &tile.TableID, &tile.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTileNotFound
		}
		return nil, fmt.Errorf("failed to load tile: %w", err)
	}
	return &tile, nil
}

func (r *localityRepository) FindTable(ctx context.Context, id int64) (*domain.Table, error) {
	var table domain.Table
	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, label, is_active FROM tables WHERE id = $1
	`, id).Scan(&table.ID, &table.StoreID, &table.Label, &table.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	return &table, nil
}

func (r *localityRepository) CreateVisit(ctx context.Context, visit *domain.TableVisit) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO table_visits (store_id, table_id, tile_id, session_token,
		                          status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, visit.StoreID, visit.TableID, visit.TileID, visit.SessionToken,
		visit.Status, visit.ExpiresAt, visit.CreatedAt,
	).Scan(&visit.ID)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

func (r *localityRepository) FindVisitByToken(ctx context.Context, token string) (*domain.TableVisit, error) {
	var visit domain.TableVisit
	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, table_id, tile_id, session_token, status,
		       expires_at, created_at, closed_at
		FROM table_visits WHERE session_token = $1
	`, token).Scan(&visit.ID, &visit.StoreID, &visit.TableID, &visit.TileID,
		&visit.SessionToken, &visit.Status, &visit.ExpiresAt, &visit.CreatedAt, &visit.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}
	return &visit, nil
}

func (r *localityRepository) CloseVisit(ctx context.Context, token string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE table_visits SET status = $1, closed_at = $2
		WHERE session_token = $3 AND status = $4
	`, domain.VisitClosed, at, token, domain.VisitOpen)
	if err != nil {
		return fmt.Errorf("failed to close visit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVisitNotFound
	}
	return nil
}

func (r *localityRepository) CreateApproval(ctx context.Context, approval *domain.LocalityApproval) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO locality_approvals (token, store_id, table_id, tile_id,
		                                client_session_id, purpose, method,
		                                expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, approval.Token, approval.StoreID, approval.TableID, approval.TileID,
		approval.ClientSessionID, approval.Purpose, approval.Method,
		approval.ExpiresAt, approval.CreatedAt,
	).Scan(&approval.ID)
	if err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

// ConsumeApproval deletes the token row and returns it, so a token can
// be spent exactly once even under concurrent submissions.
func (r *localityRepository) ConsumeApproval(ctx context.Context, token string) (*domain.LocalityApproval, error) {
	var approval domain.LocalityApproval
	err := r.db.QueryRow(ctx, `
		DELETE FROM locality_approvals WHERE token = $1
		RETURNING id, token, store_id, table_id, tile_id, client_session_id,
		          purpose, method, expires_at, created_at
	`, token).Scan(&approval.ID, &approval.Token, &approval.StoreID, &approval.TableID,
		&approval.TileID, &approval.ClientSessionID, &approval.Purpose, &approval.Method,
		&approval.ExpiresAt, &approval.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApprovalNotFound
		}
		return nil, fmt.Errorf("failed to consume approval: %w", err)
	}
	return &approval, nil
}
