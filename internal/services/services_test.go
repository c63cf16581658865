package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/repository"
	"github.com/example/mealbox/internal/utils"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceCodes hands out 100001, 100002, ... so tests know which code was issued.
func sequenceCodes() func() string {
	var mu sync.Mutex
	n := 100000
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%06d", n)
	}
}

type alert struct {
	kind        string
	orderNumber string
	paid        bool
}

type recordingAlerter struct {
	alerts chan alert
	err    error
}

func newRecordingAlerter() *recordingAlerter {
	return &recordingAlerter{alerts: make(chan alert, 16)}
}

func (a *recordingAlerter) NotifyNewOrder(_ context.Context, order OrderNotification) error {
	a.alerts <- alert{kind: "new", orderNumber: order.OrderNumber, paid: order.Paid}
	return a.err
}

func (a *recordingAlerter) NotifyOrderCancelled(_ context.Context, orderNumber string) error {
	a.alerts <- alert{kind: "cancelled", orderNumber: orderNumber}
	return a.err
}

func (a *recordingAlerter) next(t *testing.T) alert {
	t.Helper()
	select {
	case got := <-a.alerts:
		return got
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected an operator alert")
		return alert{}
	}
}

type testEnv struct {
	clock      *testClock
	store      *repository.MemoryStore
	notifier   *MockNotifier
	alerter    *recordingAlerter
	challenges *ChallengeService
	identities *IdentityService
	sessions   *utils.SessionTokens
	auth       *AuthService
	catalog    *CatalogService
	orders     *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	clock := &testClock{now: t0}
	store := repository.NewMemoryStore()
	notifier := NewMockNotifier(&logger)
	alerter := newRecordingAlerter()

	challenges := NewChallengeService(store.Challenges(), ChallengeConfig{
		TTL:            10 * time.Minute,
		ResendInterval: time.Minute,
		MaxAttempts:    5,
	}, clock.Now, &logger)
	challenges.generate = sequenceCodes()

	identities := NewIdentityService(store.Accounts(), clock.Now, &logger)
	sessions := utils.NewSessionTokens("test-secret", "mealbox", 30*24*time.Hour, clock.Now)

	return &testEnv{
		clock:      clock,
		store:      store,
		notifier:   notifier,
		alerter:    alerter,
		challenges: challenges,
		identities: identities,
		sessions:   sessions,
		auth:       NewAuthService(challenges, identities, sessions, notifier, clock.Now, &logger),
		catalog:    NewCatalogService(store.MealPlans(), &logger),
		orders: NewOrderService(store.Orders(), store.Accounts(), store.MealPlans(),
			notifier, alerter, clock.Now, &logger),
	}
}

// signIn runs the full challenge and verify flow for email.
func (e *testEnv) signIn(t *testing.T, email string, profile Profile) *AuthResult {
	t.Helper()
	ctx := context.Background()

	if _, err := e.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge(%s) failed: %v", email, err)
	}
	code, ok := e.notifier.LastCode(NormalizeEmail(email))
	if !ok {
		t.Fatalf("Expected a code to be delivered to %s", email)
	}

	result, err := e.auth.VerifyAndAuthenticate(ctx, email, code, profile)
	if err != nil {
		t.Fatalf("VerifyAndAuthenticate(%s) failed: %v", email, err)
	}
	return result
}

func (e *testEnv) seedPlan(t *testing.T) *models.MealPlan {
	t.Helper()
	plan, err := e.catalog.CreateMealPlan(context.Background(), MealPlanInput{
		Slug:         "starter-" + uuid.NewString()[:6],
		Name:         "Starter",
		MealsPerWeek: 3,
		Price:        39.9,
	})
	if err != nil {
		t.Fatalf("CreateMealPlan failed: %v", err)
	}
	return plan
}

func orderInput(planID uuid.UUID, proof string) CreateOrderInput {
	return CreateOrderInput{
		ItemID:       planID,
		Quantity:     1,
		TotalAmount:  39.9,
		PaymentProof: proof,
		Address: DeliveryAddress{
			Line: "1 Main St",
			City: "Springfield",
		},
	}
}

func assertKind(t *testing.T, err error, kind error, code string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("Expected %v, got %v", kind, err)
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if code != "" && svcErr.Code != code {
		t.Errorf("Expected code %q, got %q", code, svcErr.Code)
	}
}
