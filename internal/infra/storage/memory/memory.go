package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/paywow/settlement/internal/core/domain"
)

// MemoryStorage backs every repository with in-process maps. Used for tests
// and standalone mode (no database configured).
type MemoryStorage struct {
	transactions map[string]*domain.Transaction
	steps        map[string]map[domain.StepName]*domain.SagaStep
	escrows      map[string]*domain.EscrowAccount
	disputes     map[string]*domain.Dispute
	loyalty      map[string]*domain.LoyaltyAccount
	rewards      map[uint64]*domain.LoyaltyReward
	nextTokenID  uint64
	collected    int64
	whitelist    map[string]bool
	mu           sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		transactions: make(map[string]*domain.Transaction),
		steps:        make(map[string]map[domain.StepName]*domain.SagaStep),
		escrows:      make(map[string]*domain.EscrowAccount),
		disputes:     make(map[string]*domain.Dispute),
		loyalty:      make(map[string]*domain.LoyaltyAccount),
		rewards:      make(map[uint64]*domain.LoyaltyReward),
		whitelist:    make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TransactionRepo struct {
	store *MemoryStorage
}

func NewTransactionRepo(store *MemoryStorage) *TransactionRepo {
	return &TransactionRepo{store: store}
}

func (r *TransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.transactions[tx.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	c := *tx
	r.store.transactions[tx.TransactionID] = &c
	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.transactions[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *tx
	return &c, nil
}

func (r *TransactionRepo) UpdateStatus(ctx context.Context, transactionID string, status domain.TxStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[transactionID]
	if !ok {
		return domain.ErrNotFound
	}
	tx.Status = status
	return nil
}

// -----------------------------------------------------------------------------
// Saga Step Repository
// -----------------------------------------------------------------------------

type SagaStepRepo struct {
	store *MemoryStorage
}

func NewSagaStepRepo(store *MemoryStorage) *SagaStepRepo {
	return &SagaStepRepo{store: store}
}

func (r *SagaStepRepo) Save(ctx context.Context, step *domain.SagaStep) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	byName, ok := r.store.steps[step.TransactionID]
	if !ok {
		byName = make(map[domain.StepName]*domain.SagaStep)
		r.store.steps[step.TransactionID] = byName
	}
	c := *step
	byName[step.Name] = &c
	return nil
}

func (r *SagaStepRepo) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.SagaStep, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var steps []*domain.SagaStep
	for _, s := range r.store.steps[transactionID] {
		c := *s
		steps = append(steps, &c)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].RecordedAt < steps[j].RecordedAt })
	return steps, nil
}

// -----------------------------------------------------------------------------
// Escrow Repository
// -----------------------------------------------------------------------------

type EscrowRepo struct {
	store *MemoryStorage
}

func NewEscrowRepo(store *MemoryStorage) *EscrowRepo {
	return &EscrowRepo{store: store}
}

func (r *EscrowRepo) Create(ctx context.Context, escrow *domain.EscrowAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.escrows[escrow.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	c := *escrow
	r.store.escrows[escrow.TransactionID] = &c
	return nil
}

func (r *EscrowRepo) Get(ctx context.Context, transactionID string) (*domain.EscrowAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	escrow, ok := r.store.escrows[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *escrow
	return &c, nil
}

func (r *EscrowRepo) Finalize(ctx context.Context, transactionID string, status domain.EscrowStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	escrow, ok := r.store.escrows[transactionID]
	if !ok {
		return domain.ErrNotFound
	}
	escrow.Status = status
	escrow.Balance = 0
	return nil
}

// -----------------------------------------------------------------------------
// Dispute Repository
// -----------------------------------------------------------------------------

type DisputeRepo struct {
	store *MemoryStorage
}

func NewDisputeRepo(store *MemoryStorage) *DisputeRepo {
	return &DisputeRepo{store: store}
}

func (r *DisputeRepo) Create(ctx context.Context, dispute *domain.Dispute) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.disputes[dispute.DisputeID]; ok {
		return domain.ErrDuplicateDispute
	}
	c := *dispute
	r.store.disputes[dispute.DisputeID] = &c
	return nil
}

func (r *DisputeRepo) Get(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	dispute, ok := r.store.disputes[disputeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *dispute
	return &c, nil
}

func (r *DisputeRepo) UpdateStatus(ctx context.Context, disputeID string, status domain.DisputeStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dispute, ok := r.store.disputes[disputeID]
	if !ok {
		return domain.ErrNotFound
	}
	dispute.Status = status
	return nil
}

func (r *DisputeRepo) ListExpired(ctx context.Context, now uint64) ([]*domain.Dispute, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var expired []*domain.Dispute
	for _, d := range r.store.disputes {
		if !d.Status.Terminal() && now >= d.ResolutionDeadline {
			c := *d
			expired = append(expired, &c)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ResolutionDeadline < expired[j].ResolutionDeadline
	})
	return expired, nil
}

// -----------------------------------------------------------------------------
// Loyalty Repository
// -----------------------------------------------------------------------------

type LoyaltyRepo struct {
	store *MemoryStorage
}

func NewLoyaltyRepo(store *MemoryStorage) *LoyaltyRepo {
	return &LoyaltyRepo{store: store}
}

func (r *LoyaltyRepo) Get(ctx context.Context, customer string) (*domain.LoyaltyAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	account, ok := r.store.loyalty[customer]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *account
	return &c, nil
}

func (r *LoyaltyRepo) Save(ctx context.Context, account *domain.LoyaltyAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *account
	r.store.loyalty[account.Customer] = &c
	return nil
}

// -----------------------------------------------------------------------------
// Reward Repository
// -----------------------------------------------------------------------------

type RewardRepo struct {
	store *MemoryStorage
}

func NewRewardRepo(store *MemoryStorage) *RewardRepo {
	return &RewardRepo{store: store}
}

func (r *RewardRepo) Create(ctx context.Context, reward *domain.LoyaltyReward) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextTokenID++
	c := *reward
	c.TokenID = r.store.nextTokenID
	r.store.rewards[c.TokenID] = &c
	return c.TokenID, nil
}

func (r *RewardRepo) Get(ctx context.Context, tokenID uint64) (*domain.LoyaltyReward, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	reward, ok := r.store.rewards[tokenID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *reward
	return &c, nil
}

func (r *RewardRepo) Count(ctx context.Context) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return uint64(len(r.store.rewards)), nil
}

// -----------------------------------------------------------------------------
// Processor State Repository
// -----------------------------------------------------------------------------

type ProcessorStateRepo struct {
	store *MemoryStorage
}

func NewProcessorStateRepo(store *MemoryStorage) *ProcessorStateRepo {
	return &ProcessorStateRepo{store: store}
}

func (r *ProcessorStateRepo) CollectedFees(ctx context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.collected, nil
}

func (r *ProcessorStateRepo) AddCollectedFees(ctx context.Context, delta int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.collected += delta
	return nil
}

func (r *ProcessorStateRepo) SetWhitelisted(ctx context.Context, token string, allowed bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.whitelist[token] = allowed
	return nil
}

func (r *ProcessorStateRepo) IsWhitelisted(ctx context.Context, token string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.whitelist[token], nil
}
