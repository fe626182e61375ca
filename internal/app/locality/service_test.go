package locality

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/clock"
	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type fakeRepo struct {
	mu        sync.Mutex
	tiles     map[string]*domain.QRTile
	tables    map[int64]*domain.Table
	visits    map[string]*domain.TableVisit
	approvals map[string]*domain.LocalityApproval
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tiles:     make(map[string]*domain.QRTile),
		tables:    make(map[int64]*domain.Table),
		visits:    make(map[string]*domain.TableVisit),
		approvals: make(map[string]*domain.LocalityApproval),
	}
}

func (f *fakeRepo) FindTileByCode(_ context.Context, code string) (*domain.QRTile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tile, ok := f.tiles[code]
	if !ok {
		return nil, domain.ErrTileNotFound
	}
	return tile, nil
}

func (f *fakeRepo) FindTable(_ context.Context, id int64) (*domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table, ok := f.tables[id]
	if !ok {
		return nil, domain.ErrTableNotFound
	}
	return table, nil
}

func (f *fakeRepo) CreateVisit(_ context.Context, visit *domain.TableVisit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	visit.ID = f.nextID
	f.visits[visit.SessionToken] = visit
	return nil
}

func (f *fakeRepo) FindVisitByToken(_ context.Context, token string) (*domain.TableVisit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visit, ok := f.visits[token]
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	return visit, nil
}

func (f *fakeRepo) CloseVisit(_ context.Context, token string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	visit, ok := f.visits[token]
	if !ok || visit.Status != domain.VisitOpen {
		return domain.ErrVisitNotFound
	}
	visit.Status = domain.VisitClosed
	visit.ClosedAt = &at
	return nil
}

func (f *fakeRepo) CreateApproval(_ context.Context, approval *domain.LocalityApproval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	approval.ID = f.nextID
	f.approvals[approval.Token] = approval
	return nil
}

func (f *fakeRepo) ConsumeApproval(_ context.Context, token string) (*domain.LocalityApproval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	approval, ok := f.approvals[token]
	if !ok {
		return nil, domain.ErrApprovalNotFound
	}
	delete(f.approvals, token)
	return approval, nil
}

type fakeStores struct{}

func (fakeStores) FindByID(_ context.Context, id int64) (*domain.Store, error) {
	return &domain.Store{ID: id, Slug: "acropolis-street-food"}, nil
}

func (fakeStores) FindBySlug(context.Context, string) (*domain.Store, error) {
	return nil, domain.ErrStoreNotFound
}

type sinkCall struct {
	topic     string
	targeting interfaces.Targeting
}

type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (f *fakeSink) Publish(_ context.Context, topic string, _ any, targeting interfaces.Targeting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sinkCall{topic: topic, targeting: targeting})
}

func (f *fakeSink) PublishStaff(ctx context.Context, topic string, payload any, role domain.Role, userIDs []int64) {
	t := interfaces.Targeting{UserIDs: userIDs}
	if len(userIDs) == 0 {
		t = interfaces.Targeting{Roles: []domain.Role{role}}
	}
	f.Publish(ctx, topic, payload, t)
}

type fixture struct {
	service *Service
	repo    *fakeRepo
	sink    *fakeSink
	clock   *clock.Frozen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	sink := &fakeSink{}
	clk := clock.NewFrozen(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	lgr := logger.NewWithWriter("test", io.Discard)
	return &fixture{
		service: NewService(repo, fakeStores{}, sink, clk, lgr, 4*time.Hour, 30*time.Second),
		repo:    repo,
		sink:    sink,
		clock:   clk,
	}
}

// seedTile wires the concrete scenario: store "acropolis-street-food",
// table T3 behind tile code "GT-AB12-CD34".
func (fx *fixture) seedTile() {
	tableID := int64(3)
	fx.repo.tables[3] = &domain.Table{ID: 3, StoreID: 1, Label: "T3", IsActive: true}
	fx.repo.tables[7] = &domain.Table{ID: 7, StoreID: 1, Label: "T7", IsActive: true}
	fx.repo.tiles["GT-AB12-CD34"] = &domain.QRTile{
		ID: 100, StoreID: 1, PublicCode: "GT-AB12-CD34", TableID: &tableID, IsActive: true,
	}
}

func TestResolveTile_States(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()
	ctx := context.Background()

	res, err := fx.service.ResolveTile(ctx, "GT-AB12-CD34")
	require.NoError(t, err)
	assert.Equal(t, domain.TileResolved, res.State)
	assert.Equal(t, "T3", res.Table.Label)

	_, err = fx.service.ResolveTile(ctx, "GT-XXXX-XXXX")
	assert.ErrorIs(t, err, domain.ErrTileNotFound)

	fx.repo.tiles["GT-AB12-CD34"].IsActive = false
	res, err = fx.service.ResolveTile(ctx, "GT-AB12-CD34")
	require.NoError(t, err)
	assert.Equal(t, domain.TileInactive, res.State, "inactive tile resolves inactive regardless of binding")
}

func TestResolveTile_Unassigned(t *testing.T) {
	fx := newFixture(t)
	fx.repo.tiles["GT-NEW1-NEW1"] = &domain.QRTile{ID: 101, StoreID: 1, PublicCode: "GT-NEW1-NEW1", IsActive: true}

	res, err := fx.service.ResolveTile(context.Background(), "GT-NEW1-NEW1")
	require.NoError(t, err)
	assert.Equal(t, domain.TileUnassigned, res.State)
}

func TestResolveTile_InactiveTableCountsAsUnassigned(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()
	fx.repo.tables[3].IsActive = false

	res, err := fx.service.ResolveTile(context.Background(), "GT-AB12-CD34")
	require.NoError(t, err)
	assert.Equal(t, domain.TileUnassigned, res.State)
}

func TestOpenVisit(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()
	ctx := context.Background()

	visit, err := fx.service.OpenVisit(ctx, "GT-AB12-CD34")
	require.NoError(t, err)
	assert.Equal(t, int64(3), visit.TableID)
	assert.Len(t, visit.SessionToken, 32, "128-bit hex token")
	assert.Equal(t, fx.clock.Now().Add(4*time.Hour), visit.ExpiresAt)

	found, err := fx.service.ValidateVisit(ctx, visit.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, visit.ID, found.ID)
}

func TestValidateVisit_ExpiredAndClosed(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()
	ctx := context.Background()

	visit, err := fx.service.OpenVisit(ctx, "GT-AB12-CD34")
	require.NoError(t, err)

	fx.clock.Advance(4*time.Hour + time.Second)
	_, err = fx.service.ValidateVisit(ctx, visit.SessionToken)
	assert.ErrorIs(t, err, domain.ErrVisitNotFound, "expired visit validates as absent")

	second, err := fx.service.OpenVisit(ctx, "GT-AB12-CD34")
	require.NoError(t, err)
	require.NoError(t, fx.service.CloseVisit(ctx, second.SessionToken))
	_, err = fx.service.ValidateVisit(ctx, second.SessionToken)
	assert.ErrorIs(t, err, domain.ErrVisitNotFound, "closed visit validates as absent")
}

func TestApproveLocality_Match(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()

	approval, err := fx.service.ApproveLocality(context.Background(), "GT-AB12-CD34", 3, "dev-1", "qr_scan")
	require.NoError(t, err)
	assert.Equal(t, fx.clock.Now().Add(30*time.Second), approval.ExpiresAt)
	assert.Equal(t, domain.PurposeOrderSubmit, approval.Purpose)
}

func TestApproveLocality_MismatchNamesExpectedTable(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()

	_, err := fx.service.ApproveLocality(context.Background(), "GT-AB12-CD34", 7, "dev-1", "qr_scan")

	var mismatch *domain.TableMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(3), mismatch.ExpectedTableID, "error names T3 as the expected table")
}

func TestConsumeApproval_TTLBoundary(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()
	ctx := context.Background()

	issue := func() string {
		approval, err := fx.service.ApproveLocality(ctx, "GT-AB12-CD34", 3, "dev-1", "qr_scan")
		require.NoError(t, err)
		return approval.Token
	}

	token := issue()
	fx.clock.Advance(29 * time.Second)
	_, err := fx.service.ConsumeApproval(ctx, token, domain.PurposeOrderSubmit)
	assert.NoError(t, err, "valid at T+29s")

	token = issue()
	fx.clock.Advance(31 * time.Second)
	_, err = fx.service.ConsumeApproval(ctx, token, domain.PurposeOrderSubmit)
	assert.ErrorIs(t, err, domain.ErrApprovalNotFound, "invalid at T+31s")
}

func TestConsumeApproval_SingleUse(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()
	ctx := context.Background()

	approval, err := fx.service.ApproveLocality(ctx, "GT-AB12-CD34", 3, "dev-1", "qr_scan")
	require.NoError(t, err)

	_, err = fx.service.ConsumeApproval(ctx, approval.Token, domain.PurposeOrderSubmit)
	require.NoError(t, err)
	_, err = fx.service.ConsumeApproval(ctx, approval.Token, domain.PurposeOrderSubmit)
	assert.ErrorIs(t, err, domain.ErrApprovalNotFound)
}

func TestCallWaiter_FallsBackToRoleBroadcast(t *testing.T) {
	fx := newFixture(t)
	fx.seedTile()

	require.NoError(t, fx.service.CallWaiter(context.Background(), 3))

	require.Len(t, fx.sink.calls, 1)
	call := fx.sink.calls[0]
	assert.Equal(t, "acropolis-street-food/waiter/call", call.topic)
	assert.Equal(t, []domain.Role{domain.RoleWaiter}, call.targeting.Roles)
	assert.Empty(t, call.targeting.UserIDs)
}
