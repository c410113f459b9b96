// Package control wires the settlement components together and manages their
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/paywow/settlement/internal/core/config"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/core/worker"
	"github.com/paywow/settlement/internal/dispute"
	"github.com/paywow/settlement/internal/escrow"
	redisclient "github.com/paywow/settlement/internal/infra/redis"
	"github.com/paywow/settlement/internal/infra/storage"
	"github.com/paywow/settlement/internal/infra/storage/memory"
	"github.com/paywow/settlement/internal/infra/storage/postgres"
	"github.com/paywow/settlement/internal/infra/token"
	"github.com/paywow/settlement/internal/loyalty"
	"github.com/paywow/settlement/internal/orchestrator"
	"github.com/paywow/settlement/internal/processor"
	"github.com/paywow/settlement/internal/settlement/events"
	"github.com/paywow/settlement/internal/settlement/health"
)

// Engine is the main application struct that owns every settlement component.
type Engine struct {
	cfg          *config.AppConfig
	orchestrator *orchestrator.Orchestrator
	processor    *processor.Processor
	escrows      *escrow.Ledger
	disputes     *dispute.Ledger
	loyalty      *loyalty.Ledger
	tokens       *token.MemoryService
	sweeper      *worker.Sweeper
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewEngine creates an Engine with all dependencies initialized.
func NewEngine(cfg *config.AppConfig) (*Engine, error) {
	log := slog.Default()
	ctx := context.Background()

	// 1. Initialize Storage
	var txRepo storage.TransactionRepository
	var stepRepo storage.SagaStepRepository
	var escrowRepo storage.EscrowRepository
	var disputeRepo storage.DisputeRepository
	var loyaltyRepo storage.LoyaltyRepository
	var rewardRepo storage.RewardRepository
	var stateRepo storage.ProcessorStateRepository
	var db *postgres.DB
	var storageHealth health.StorageHealth
	storageName := "memory"

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations. Goose needs the *sql.DB that sqlx wraps.
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		txRepo = postgres.NewTransactionRepo(db)
		stepRepo = postgres.NewSagaStepRepo(db)
		escrowRepo = postgres.NewEscrowRepo(db)
		disputeRepo = postgres.NewDisputeRepo(db)
		loyaltyRepo = postgres.NewLoyaltyRepo(db)
		rewardRepo = postgres.NewRewardRepo(db)
		stateRepo = postgres.NewProcessorStateRepo(db)

		storageHealth = db
		storageName = "postgres"
		log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		txRepo = memory.NewTransactionRepo(store)
		stepRepo = memory.NewSagaStepRepo(store)
		escrowRepo = memory.NewEscrowRepo(store)
		disputeRepo = memory.NewDisputeRepo(store)
		loyaltyRepo = memory.NewLoyaltyRepo(store)
		rewardRepo = memory.NewRewardRepo(store)
		stateRepo = memory.NewProcessorStateRepo(store)

		log.Info("Using Memory storage")
	}

	// 2. Initialize Redis: shared ledger sequence and dispute deadline index.
	var redisClient *redisclient.Client
	var clock ledger.Clock
	var deadlineIndex *redisclient.DeadlineIndex

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, using local sequence", "error", err)
		} else {
			clock = redisclient.NewSequence(redisClient)
			deadlineIndex = redisclient.NewDeadlineIndex(redisClient)
		}
	}
	if clock == nil {
		clock = ledger.NewMemoryClock(0)
	}

	// 3. Initialize Components
	emitter := events.NewLogEmitter(log)
	tokens := token.NewMemoryService()

	proc, err := processor.New(processor.Config{
		Owner:          cfg.Settlement.Owner,
		FeeAccount:     cfg.Settlement.FeeAccount,
		PaymentToken:   cfg.Settlement.PaymentToken,
		PlatformFeeBps: cfg.Settlement.PlatformFeeBps,
	}, tokens, stateRepo, clock, emitter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init processor: %w", err)
	}

	// The payment token is always accepted.
	if err := proc.SetWhitelist(ctx, cfg.Settlement.Owner, cfg.Settlement.PaymentToken, true); err != nil {
		return nil, fmt.Errorf("failed to whitelist payment token: %w", err)
	}

	escrows := escrow.New(escrow.Config{
		Owner:          cfg.Settlement.Owner,
		CustodyAccount: cfg.Settlement.CustodyAccount,
	}, tokens, escrowRepo, clock, emitter, log)

	disputes := dispute.New(dispute.Config{
		Owner:         cfg.Settlement.Owner,
		DisputeWindow: cfg.Settlement.DisputeWindow,
	}, disputeRepo, clock, emitter, log)
	if deadlineIndex != nil {
		disputes.SetDeadlineIndex(deadlineIndex)
	}

	loyaltyLedger := loyalty.New(loyaltyRepo, rewardRepo, clock, emitter, log)

	orch := orchestrator.New(orchestrator.Config{
		Owner:     cfg.Settlement.Owner,
		PointsPer: cfg.Settlement.PointsPer,
	}, txRepo, stepRepo, proc, escrows, disputes, loyaltyLedger, clock, log)

	// 4. Initialize Sweeper
	var sweeper *worker.Sweeper
	if cfg.Settlement.SweepInterval > 0 {
		sweeper = worker.NewSweeper(cfg.Settlement.SweepInterval, disputes, orch, clock, log)
		if deadlineIndex != nil {
			sweeper.SetDeadlineIndex(deadlineIndex)
		}
	}

	// 5. Initialize Health Server
	monitor := health.NewMonitor(storageHealth, storageName, disputes, clock)
	healthServer := health.NewServer(monitor, disputes, proc, cfg.Server.Port)

	return &Engine{
		cfg:          cfg,
		orchestrator: orch,
		processor:    proc,
		escrows:      escrows,
		disputes:     disputes,
		loyalty:      loyaltyLedger,
		tokens:       tokens,
		sweeper:      sweeper,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          log,
	}, nil
}

// Start starts the engine's background components.
func (e *Engine) Start(ctx context.Context) error {
	go func() {
		if err := e.healthServer.Start(); err != nil {
			e.log.Error("Health server failed", "error", err)
		}
	}()

	if e.db != nil {
		e.db.StartMetricsCollector(ctx)
	}

	if e.sweeper != nil {
		e.log.Info("Starting dispute timeout sweeper", "interval", e.cfg.Settlement.SweepInterval)
		go e.sweeper.Start(ctx)
	}

	e.log.Info("Settlement engine started", "port", e.cfg.Server.Port)
	return nil
}

// Stop stops the engine.
func (e *Engine) Stop(ctx context.Context) error {
	e.log.Info("Stopping settlement engine...")

	if e.redisClient != nil {
		if err := e.redisClient.Close(); err != nil {
			e.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.log.Warn("Failed to close database", "error", err)
		}
	}

	return e.healthServer.Stop(ctx)
}

// Orchestrator exposes the composite-flow entry point.
func (e *Engine) Orchestrator() *orchestrator.Orchestrator { return e.orchestrator }

// Processor exposes the payment processor for admin operations.
func (e *Engine) Processor() *processor.Processor { return e.processor }

// Escrows exposes the escrow ledger.
func (e *Engine) Escrows() *escrow.Ledger { return e.escrows }

// Disputes exposes the dispute ledger for admin operations.
func (e *Engine) Disputes() *dispute.Ledger { return e.disputes }

// Loyalty exposes the loyalty ledger.
func (e *Engine) Loyalty() *loyalty.Ledger { return e.loyalty }

// Tokens exposes the in-memory token rail, used by the demo CLI to fund
// accounts.
func (e *Engine) Tokens() *token.MemoryService { return e.tokens }
