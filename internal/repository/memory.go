package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/mealbox/internal/models"
)

// MemoryStore is a thread-safe in-process implementation of every repository.
// One mutex guards all tables, so each method is atomic with respect to the others.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]models.Challenge
	accounts   map[uuid.UUID]models.Account
	orders     map[uuid.UUID]models.Order
	plans      map[uuid.UUID]models.MealPlan
}

// NewMemoryStore initializes an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]models.Challenge),
		accounts:   make(map[uuid.UUID]models.Account),
		orders:     make(map[uuid.UUID]models.Order),
		plans:      make(map[uuid.UUID]models.MealPlan),
	}
}

// Challenges returns the store's ChallengeRepository view.
func (m *MemoryStore) Challenges() ChallengeRepository { return memoryChallenges{m} }

// Accounts returns the store's AccountRepository view.
func (m *MemoryStore) Accounts() AccountRepository { return memoryAccounts{m} }

// Orders returns the store's OrderRepository view.
func (m *MemoryStore) Orders() OrderRepository { return memoryOrders{m} }

// MealPlans returns the store's MealPlanRepository view.
func (m *MemoryStore) MealPlans() MealPlanRepository { return memoryMealPlans{m} }

func assignID(base *models.BaseModel, now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = base.CreatedAt
	}
}

// --- challenges ---

type memoryChallenges struct{ m *MemoryStore }

func (r memoryChallenges) Upsert(_ context.Context, challenge *models.Challenge) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	challenge.Attempts = 0
	challenge.Consumed = false
	challenge.ConsumedAt = nil
	challenge.UpdatedAt = challenge.CreatedAt
	r.m.challenges[challenge.Identity] = *challenge
	return nil
}

func (r memoryChallenges) Get(_ context.Context, identity string) (*models.Challenge, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	challenge, ok := r.m.challenges[identity]
	if !ok {
		return nil, ErrNotFound
	}
	return &challenge, nil
}

func (r memoryChallenges) Consume(
	_ context.Context,
	identity, code string,
	now time.Time,
	maxAttempts int,
) (*models.Challenge, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	challenge, ok := r.m.challenges[identity]
	if !ok {
		return nil, false, nil
	}

	if challenge.Consumed || !now.Before(challenge.ExpiresAt) ||
		challenge.Attempts >= maxAttempts || challenge.Code != code {
		return &challenge, false, nil
	}

	consumedAt := now
	challenge.Consumed = true
	challenge.ConsumedAt = &consumedAt
	challenge.UpdatedAt = now
	r.m.challenges[identity] = challenge
	return &challenge, true, nil
}

func (r memoryChallenges) RecordFailedAttempt(_ context.Context, identity string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	challenge, ok := r.m.challenges[identity]
	if !ok || challenge.Consumed {
		return nil
	}
	challenge.Attempts++
	challenge.UpdatedAt = now
	r.m.challenges[identity] = challenge
	return nil
}

func (r memoryChallenges) Expire(_ context.Context, identity string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	challenge, ok := r.m.challenges[identity]
	if !ok || !now.Before(challenge.ExpiresAt) {
		return nil
	}
	challenge.ExpiresAt = now
	challenge.UpdatedAt = now
	r.m.challenges[identity] = challenge
	return nil
}

// --- accounts ---

type memoryAccounts struct{ m *MemoryStore }

// phoneTakenLocked reports whether another account holds phone. Callers hold m.mu.
func (r memoryAccounts) phoneTakenLocked(phone string, except uuid.UUID) bool {
	for id, account := range r.m.accounts {
		if id != except && account.Phone != nil && *account.Phone == phone {
			return true
		}
	}
	return false
}

func (r memoryAccounts) Create(_ context.Context, account *models.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.accounts {
		if existing.Email == account.Email {
			return ErrDuplicateEmail
		}
	}
	if account.Phone != nil && r.phoneTakenLocked(*account.Phone, uuid.Nil) {
		return ErrDuplicatePhone
	}

	assignID(&account.BaseModel, time.Now())
	r.m.accounts[account.ID] = *account
	return nil
}

func (r memoryAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	account, ok := r.m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (r memoryAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.Email == email })
}

func (r memoryAccounts) GetByPhone(_ context.Context, phone string) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.Phone != nil && *a.Phone == phone })
}

func (r memoryAccounts) find(match func(models.Account) bool) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, account := range r.m.accounts {
		if match(account) {
			return &account, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryAccounts) Update(
	_ context.Context,
	id uuid.UUID,
	params UpdateAccountParams,
	now time.Time,
) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	account, ok := r.m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if params.IsEmpty() {
		return &account, nil
	}

	if params.Phone != nil {
		if r.phoneTakenLocked(*params.Phone, id) {
			return nil, ErrDuplicatePhone
		}
		phone := *params.Phone
		account.Phone = &phone
	}
	if params.Name != nil {
		account.Name = *params.Name
	}
	if params.Address != nil {
		account.Address = *params.Address
	}
	if params.City != nil {
		account.City = *params.City
	}
	if params.State != nil {
		account.State = *params.State
	}
	if params.PostalCode != nil {
		account.PostalCode = *params.PostalCode
	}
	account.UpdatedAt = now

	r.m.accounts[id] = account
	return &account, nil
}

// --- orders ---

type memoryOrders struct{ m *MemoryStore }

func (r memoryOrders) Create(_ context.Context, order *models.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.orders {
		if existing.OrderNumber == order.OrderNumber {
			return ErrDuplicate
		}
	}

	assignID(&order.BaseModel, time.Now())
	r.m.orders[order.ID] = *order
	return nil
}

func (r memoryOrders) getLocked(id uuid.UUID, accountID *uuid.UUID) (models.Order, error) {
	order, ok := r.m.orders[id]
	if !ok || (accountID != nil && order.AccountID != *accountID) {
		return models.Order{}, ErrNotFound
	}
	return order, nil
}

func (r memoryOrders) Get(_ context.Context, id uuid.UUID, accountID *uuid.UUID) (*models.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	order, err := r.getLocked(id, accountID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r memoryOrders) List(_ context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	search := strings.ToLower(filter.Search)
	matched := make([]models.Order, 0)
	for _, order := range r.m.orders {
		if filter.AccountID != nil && order.AccountID != *filter.AccountID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(order.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(order.DeliveryAddressLine), search) {
			continue
		}
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PlacedAt.After(matched[j].PlacedAt)
	})

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	return matched[start:end], total, nil
}

func (r memoryOrders) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	accountID *uuid.UUID,
	apply func(*models.Order) error,
) (*models.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	order, err := r.getLocked(id, accountID)
	if err != nil {
		return nil, err
	}

	if err := apply(&order); err != nil {
		return nil, err
	}

	r.m.orders[id] = order
	return &order, nil
}

func (r memoryOrders) CountByStatus(_ context.Context) (map[models.OrderStatus]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	counts := make(map[models.OrderStatus]int64)
	for _, order := range r.m.orders {
		counts[order.Status]++
	}
	return counts, nil
}

// --- meal plans ---

type memoryMealPlans struct{ m *MemoryStore }

func (r memoryMealPlans) List(_ context.Context, activeOnly bool) ([]models.MealPlan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	plans := make([]models.MealPlan, 0, len(r.m.plans))
	for _, plan := range r.m.plans {
		if activeOnly && !plan.IsActive {
			continue
		}
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans, nil
}

func (r memoryMealPlans) Get(_ context.Context, id uuid.UUID) (*models.MealPlan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	plan, ok := r.m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &plan, nil
}

func (r memoryMealPlans) Create(_ context.Context, plan *models.MealPlan) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.plans {
		if existing.Slug == plan.Slug {
			return ErrDuplicate
		}
	}

	assignID(&plan.BaseModel, time.Now())
	r.m.plans[plan.ID] = *plan
	return nil
}

func (r memoryMealPlans) Update(_ context.Context, plan *models.MealPlan) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.plans[plan.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range r.m.plans {
		if id != plan.ID && other.Slug == plan.Slug {
			return ErrDuplicate
		}
	}

	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = time.Now()
	r.m.plans[plan.ID] = *plan
	return nil
}
