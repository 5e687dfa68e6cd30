// Package service runs submission operations: load the snapshot, apply one
// workflow transition, save the new snapshot, then publish the side effects.
//
// Transitions on one submission are serialised by a Locker and guarded by the
// store's version check, so a lost race surfaces as a conflict rather than a
// silently overwritten snapshot. Effects are published only after the save
// commits; a publishing failure is logged and counted but never undoes the
// transition.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"supplierflow/internal/effects"
	"supplierflow/internal/matcher"
	"supplierflow/internal/submission/lock"
	submissionmetrics "supplierflow/internal/submission/metrics"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/submission/store"
	"supplierflow/internal/submission/vault"
	"supplierflow/internal/workflow"
	id "supplierflow/pkg/domain"
)

// Store persists submission snapshots and their index.
type Store interface {
	Create(ctx context.Context, sub *models.Submission) error
	FindByID(ctx context.Context, subID id.SubmissionID) (*models.Submission, error)
	Save(ctx context.Context, sub *models.Submission, expectedVersion int) error
	List(ctx context.Context, filter store.ListFilter) ([]*models.Submission, error)
	AppendIndex(ctx context.Context, entry models.IndexEntry) error
	Index(ctx context.Context, subID id.SubmissionID) ([]models.IndexEntry, error)
	CompletedSuppliers(ctx context.Context) ([]matcher.Entry, error)
}

// Watchlist holds names of rejected or flagged suppliers.
type Watchlist interface {
	Add(ctx context.Context, entry store.WatchlistEntry) error
	Entries(ctx context.Context) ([]matcher.Entry, error)
}

// Sealer moves sensitive fields out of snapshots and back.
type Sealer interface {
	Seal(ctx context.Context, sub *models.Submission) (*models.Submission, error)
	Open(ctx context.Context, sub *models.Submission) (*models.Submission, error)
	Discard(ctx context.Context, subID id.SubmissionID) error
}

// StoreTx runs fn as one unit of work against the store.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Service orchestrates the submission lifecycle.
type Service struct {
	store     Store
	watchlist Watchlist
	seed      []matcher.Entry
	machine   *workflow.Machine
	locker    lock.Locker
	sealer    Sealer
	tx        StoreTx
	publisher effects.Publisher
	logger    *slog.Logger
	metrics   *submissionmetrics.Metrics
	tracer    trace.Tracer
}

type serviceConfig struct {
	watchlist  Watchlist
	seed       []matcher.Entry
	thresholds *matcher.Thresholds
	locker     lock.Locker
	sealer     Sealer
	tx         StoreTx
	publisher  effects.Publisher
	logger     *slog.Logger
	metrics    *submissionmetrics.Metrics
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *submissionmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithPublisher(p effects.Publisher) Option {
	return func(c *serviceConfig) {
		c.publisher = p
	}
}

func WithLocker(l lock.Locker) Option {
	return func(c *serviceConfig) {
		c.locker = l
	}
}

func WithSealer(s Sealer) Option {
	return func(c *serviceConfig) {
		c.sealer = s
	}
}

func WithStoreTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}

func WithWatchlist(w Watchlist) Option {
	return func(c *serviceConfig) {
		c.watchlist = w
	}
}

// WithWatchlistSeed adds fixed names that are screened alongside the
// watchlist store.
func WithWatchlistSeed(entries []matcher.Entry) Option {
	return func(c *serviceConfig) {
		c.seed = entries
	}
}

func WithThresholds(th matcher.Thresholds) Option {
	return func(c *serviceConfig) {
		c.thresholds = &th
	}
}

// New constructs a Service. Unset collaborators default to in-process
// implementations.
func New(st Store, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Service{
		store:     st,
		watchlist: cfg.watchlist,
		seed:      cfg.seed,
		locker:    cfg.locker,
		sealer:    cfg.sealer,
		tx:        cfg.tx,
		publisher: cfg.publisher,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    otel.Tracer("supplierflow/submission"),
	}
	thresholds := matcher.DefaultThresholds()
	if cfg.thresholds != nil {
		thresholds = *cfg.thresholds
	}
	s.machine = workflow.New(workflow.WithThresholds(thresholds))

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.watchlist == nil {
		s.watchlist = store.NewInMemoryWatchlist()
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.sealer == nil {
		s.sealer = newInMemorySealer()
	}
	if s.tx == nil {
		s.tx = inMemoryStoreTx{}
	}
	if s.publisher == nil {
		s.publisher = effects.NewLogPublisher(s.logger)
	}
	if s.metrics == nil {
		s.metrics = submissionmetrics.New(nil)
	}
	return s
}

// newInMemorySealer keys fingerprints with a per-process secret; the secrets
// it guards do not outlive the process either.
func newInMemorySealer() *vault.Vault {
	key := uuid.New()
	v, err := vault.New(vault.NewInMemory(), key[:])
	if err != nil {
		panic(err)
	}
	return v
}

type inMemoryStoreTx struct{}

func (inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// observe records the outcome of one operation. Call with time.Now() at the
// start of the operation.
func (s *Service) observe(operation string, err error, start time.Time) {
	s.metrics.ObserveTransition(operation, resultCode(err), start)
}
