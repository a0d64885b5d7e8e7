package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/internal/repository/memory"
	"rally-api/pkg/logger"
	"rally-api/pkg/metrics"
	"rally-api/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stepClock advances by step on every reading so creation order is total
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type fixture struct {
	store   *memory.Store
	repos   *repository.Repositories
	cache   *CacheService
	metrics *metrics.Manager
	clock   *stepClock
	redis   *miniredis.Miniredis

	captures CaptureService
	rallies  RallyService
	crowns   CrownService
	reports  ReportService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	withRedis   bool
	seasonStart *time.Time
}

func withRedis() fixtureOption {
	return func(c *fixtureConfig) { c.withRedis = true }
}

func withSeasonStart(t time.Time) fixtureOption {
	return func(c *fixtureConfig) { c.seasonStart = &t }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := &stepClock{t: time.Date(2026, 10, 3, 18, 0, 0, 0, time.UTC), step: time.Second}
	store := memory.New(memory.WithClock(clock.Now))
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))

	f := &fixture{
		store:   store,
		repos:   store.Repositories(),
		metrics: m,
		clock:   clock,
	}

	var redisClient *redis.Client
	if cfg.withRedis {
		f.redis = miniredis.RunT(t)
		client, err := redis.NewClient("redis://"+f.redis.Addr(), "test", zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		redisClient = client
	}
	f.cache = NewCacheService(redisClient, zap.NewNop(), m)

	f.wire(cfg.seasonStart)
	return f
}

// wire builds the services over f.repos, so tests can swap a repository first
func (f *fixture) wire(seasonStart *time.Time) {
	log := logger.NewNop()

	captures := NewCaptureService(f.repos, f.cache, log, f.metrics).(*captureService)
	captures.now = f.clock.Now
	rallies := NewRallyService(f.repos, f.cache, log, f.metrics).(*rallyService)
	rallies.now = f.clock.Now
	crowns := NewCrownService(f.repos, f.cache, log, f.metrics).(*crownService)
	crowns.now = f.clock.Now
	reports := NewReportService(f.repos, f.cache, log, seasonStart).(*reportService)
	reports.now = f.clock.Now

	f.captures, f.rallies, f.crowns, f.reports = captures, rallies, crowns, reports
}

func (f *fixture) event(id string, sig domain.Significance, status domain.EventStatus) {
	f.store.PutEvent(domain.Event{ID: id, Name: "Event " + id, Significance: sig, Status: status, StartsAt: f.clock.Now()})
}

func (f *fixture) post(t *testing.T, eventID, userID string, mt domain.MomentType) *domain.Capture {
	t.Helper()
	res, err := f.captures.PostCapture(context.Background(), domain.PostCaptureRequest{
		EventID:    eventID,
		UserID:     userID,
		ImageRef:   "uploads/" + userID + ".jpg",
		MomentType: string(mt),
	})
	require.NoError(t, err)
	return res.Capture
}

func (f *fixture) rally(t *testing.T, captureID, voterID string) *domain.RallyResult {
	t.Helper()
	res, err := f.rallies.CastRally(context.Background(), captureID, voterID)
	require.NoError(t, err)
	return res
}

func (f *fixture) capture(t *testing.T, id string) *domain.Capture {
	t.Helper()
	c, err := f.repos.Captures.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func (f *fixture) balance(t *testing.T, userID string) (balance, ledgerSum int64) {
	t.Helper()
	ctx := context.Background()
	balance, err := f.repos.Ledger.GetBalance(ctx, userID)
	require.NoError(t, err)
	ledgerSum, err = f.repos.Ledger.SumEntries(ctx, userID)
	require.NoError(t, err)
	return balance, ledgerSum
}

var errLedgerDown = errors.New("ledger unavailable")

// failingLedgerTx fails every ledger append
type failingLedgerTx struct {
	repository.Tx
}

func (failingLedgerTx) AppendLedger(context.Context, *domain.PointsLedgerEntry) error {
	return errLedgerDown
}

type failingLedgerTxManager struct {
	inner repository.TxManager
}

func (m failingLedgerTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return m.inner.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, failingLedgerTx{tx})
	})
}

// withFailingLedger rewires the services so every ledger append fails
func (f *fixture) withFailingLedger() {
	repos := *f.repos
	repos.Tx = failingLedgerTxManager{inner: f.repos.Tx}
	f.repos = &repos
	f.wire(nil)
}
