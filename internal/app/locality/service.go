// Package locality binds anonymous ordering devices to physical tables:
// tile resolution, time-boxed visit sessions and short-lived proximity
// approvals.
package locality

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/clock"
	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type Service struct {
	repo        interfaces.LocalityRepository
	stores      interfaces.StoreRepository
	events      interfaces.EventSink
	clock       clock.Clock
	logger      logger.Logger
	visitTTL    time.Duration
	approvalTTL time.Duration
}

func NewService(
	repo interfaces.LocalityRepository,
	stores interfaces.StoreRepository,
	events interfaces.EventSink,
	clk clock.Clock,
	lgr logger.Logger,
	visitTTL, approvalTTL time.Duration,
) *Service {
	return &Service{
		repo:        repo,
		stores:      stores,
		events:      events,
		clock:       clk,
		logger:      lgr,
		visitTTL:    visitTTL,
		approvalTTL: approvalTTL,
	}
}

// ResolveTile classifies a public code. Unknown codes return
// ErrTileNotFound; inactive tiles resolve as inactive regardless of
// their binding; a tile whose bound table is missing or inactive counts
// as unassigned.
func (s *Service) ResolveTile(ctx context.Context, publicCode string) (*domain.TileResolution, error) {
	tile, err := s.repo.FindTileByCode(ctx, publicCode)
	if err != nil {
		return nil, err
	}

	if !tile.IsActive {
		return &domain.TileResolution{State: domain.TileInactive, Tile: tile}, nil
	}
	if tile.TableID == nil {
		return &domain.TileResolution{State: domain.TileUnassigned, Tile: tile}, nil
	}

	table, err := s.repo.FindTable(ctx, *tile.TableID)
	if err != nil {
		if errors.Is(err, domain.ErrTableNotFound) {
			return &domain.TileResolution{State: domain.TileUnassigned, Tile: tile}, nil
		}
		return nil, err
	}
	if !table.IsActive {
		return &domain.TileResolution{State: domain.TileUnassigned, Tile: tile}, nil
	}

	return &domain.TileResolution{State: domain.TileResolved, Tile: tile, Table: table}, nil
}

// OpenVisit starts an anonymous visit session for the table behind the
// tile. The tile must resolve.
func (s *Service) OpenVisit(ctx context.Context, publicCode string) (*domain.TableVisit, error) {
	res, err := s.ResolveTile(ctx, publicCode)
	if err != nil {
		return nil, err
	}
	if res.State != domain.TileResolved {
		return nil, domain.ErrTileNotFound
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	visit := &domain.TableVisit{
		StoreID:      res.Tile.StoreID,
		TableID:      res.Table.ID,
		TileID:       res.Tile.ID,
		SessionToken: token,
		Status:       domain.VisitOpen,
		ExpiresAt:    now.Add(s.visitTTL),
		CreatedAt:    now,
	}
	if err := s.repo.CreateVisit(ctx, visit); err != nil {
		return nil, err
	}

	s.logger.Info("visit_opened", "Table visit opened", "", map[string]any{
		"store_id": visit.StoreID,
		"table_id": visit.TableID,
	})
	return visit, nil
}

// ValidateVisit returns the visit behind a session token if it is still
// open and unexpired; expired or closed visits validate as absent.
func (s *Service) ValidateVisit(ctx context.Context, sessionToken string) (*domain.TableVisit, error) {
	visit, err := s.repo.FindVisitByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if !visit.Usable(s.clock.Now()) {
		return nil, domain.ErrVisitNotFound
	}
	return visit, nil
}

// CloseVisit ends a visit so the table can be reset for new guests.
func (s *Service) CloseVisit(ctx context.Context, sessionToken string) error {
	return s.repo.CloseVisit(ctx, sessionToken, s.clock.Now())
}

// ApproveLocality issues a proximity token after verifying the claimed
// table matches the tile's binding. A mismatch surfaces the expected
// table id so the client can self-correct.
func (s *Service) ApproveLocality(ctx context.Context, publicCode string, claimedTableID int64, clientSessionID, method string) (*domain.LocalityApproval, error) {
	res, err := s.ResolveTile(ctx, publicCode)
	if err != nil {
		return nil, err
	}
	if res.State != domain.TileResolved {
		return nil, domain.ErrTileNotFound
	}
	if res.Table.ID != claimedTableID {
		return nil, &domain.TableMismatchError{ExpectedTableID: res.Table.ID}
	}

	now := s.clock.Now()
	approval := &domain.LocalityApproval{
		Token:           uuid.NewString(),
		StoreID:         res.Tile.StoreID,
		TableID:         res.Table.ID,
		TileID:          res.Tile.ID,
		ClientSessionID: clientSessionID,
		Purpose:         domain.PurposeOrderSubmit,
		Method:          method,
		ExpiresAt:       now.Add(s.approvalTTL),
		CreatedAt:       now,
	}
	if err := s.repo.CreateApproval(ctx, approval); err != nil {
		return nil, err
	}
	return approval, nil
}

// ConsumeApproval spends a single-use approval token, checking purpose
// and expiry against the clock.
func (s *Service) ConsumeApproval(ctx context.Context, token string, purpose domain.ApprovalPurpose) (*domain.LocalityApproval, error) {
	approval, err := s.repo.ConsumeApproval(ctx, token)
	if err != nil {
		return nil, err
	}
	if !approval.Valid(purpose, s.clock.Now()) {
		return nil, domain.ErrApprovalNotFound
	}
	return approval, nil
}

// CallWaiter fans out a service request for the table to waiters on
// shift, and to the broker for cross-process consumers.
func (s *Service) CallWaiter(ctx context.Context, tableID int64) error {
	table, err := s.repo.FindTable(ctx, tableID)
	if err != nil {
		return err
	}
	store, err := s.stores.FindByID(ctx, table.StoreID)
	if err != nil {
		return err
	}

	event := interfaces.WaiterCallEvent{
		StoreID:    table.StoreID,
		TableID:    table.ID,
		TableLabel: table.Label,
		OccurredAt: s.clock.Now(),
	}
	topic := fmt.Sprintf("%s/waiter/call", store.Slug)
	s.events.PublishStaff(ctx, topic, event, domain.RoleWaiter, nil)
	return nil
}

// newSessionToken returns a 128-bit random token in hex.
func newSessionToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
