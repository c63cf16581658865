package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/mealbox/internal/database"
	"github.com/example/mealbox/internal/models"
)

// testDatabaseEnv names a Postgres DSN the gorm tests may migrate and write to.
const testDatabaseEnv = "MEALBOX_TEST_DATABASE_URL"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping Postgres-backed repository tests", testDatabaseEnv)
	}

	logger := zerolog.Nop()
	db, err := database.Connect(dsn, false, &logger)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestGormChallenges_ConcurrentConsume(t *testing.T) {
	db := openTestDB(t)
	repo := NewChallengeGormRepository(db)
	identity := uuid.NewString() + "@race.test"
	seedChallenge(t, repo, identity, "424242")
	t.Cleanup(func() { db.Delete(&models.Challenge{}, "identity = ?", identity) })

	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, ok, err := repo.Consume(context.Background(), identity, "424242", t0.Add(time.Minute), 5)
			if err != nil {
				t.Errorf("Consume failed: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&successes, 1)
				if !c.Consumed || c.ConsumedAt == nil {
					t.Errorf("Expected returned row to be consumed, got %+v", c)
				}
			} else if c == nil || !c.Consumed {
				t.Errorf("Expected losers to see the consumed row, got %+v", c)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly one successful consume, got %d", successes)
	}
}

func TestGormChallenges_ConsumeConditions(t *testing.T) {
	db := openTestDB(t)
	repo := NewChallengeGormRepository(db)
	ctx := context.Background()
	identity := uuid.NewString() + "@cond.test"
	seedChallenge(t, repo, identity, "123456")
	t.Cleanup(func() { db.Delete(&models.Challenge{}, "identity = ?", identity) })

	if c, ok, err := repo.Consume(ctx, "missing-"+identity, "123456", t0, 5); ok || c != nil || err != nil {
		t.Fatalf("Expected nil, false, nil for missing identity; got %v %v %v", c, ok, err)
	}
	if _, ok, _ := repo.Consume(ctx, identity, "654321", t0, 5); ok {
		t.Errorf("Expected mismatching code to be rejected")
	}
	if _, ok, _ := repo.Consume(ctx, identity, "123456", t0.Add(10*time.Minute), 5); ok {
		t.Errorf("Expected code at expiry instant to be rejected")
	}

	for i := 0; i < 2; i++ {
		if err := repo.RecordFailedAttempt(ctx, identity, t0); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
	}
	if _, ok, _ := repo.Consume(ctx, identity, "123456", t0, 2); ok {
		t.Errorf("Expected challenge locked after 2 failed attempts")
	}
	if _, ok, err := repo.Consume(ctx, identity, "123456", t0, 5); err != nil || !ok {
		t.Errorf("Expected consume under the attempt limit to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestGormOrders_ConcurrentUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	account := &models.Account{Email: uuid.NewString() + "@orders.test", Name: "Race"}
	if err := NewAccountGormRepository(db).Create(ctx, account); err != nil {
		t.Fatalf("Create account failed: %v", err)
	}

	orders := NewOrderGormRepository(db)
	order := &models.Order{
		AccountID:   account.ID,
		OrderNumber: "MB-TEST-" + uuid.NewString()[:8],
		Status:      models.OrderStatusPending,
		PlacedAt:    t0,
	}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("Create order failed: %v", err)
	}
	t.Cleanup(func() {
		db.Delete(&models.Order{}, "id = ?", order.ID)
		db.Delete(&models.Account{}, "id = ?", account.ID)
	})

	errAlreadyMoved := errors.New("already moved")
	stranger := uuid.New()
	if _, err := orders.UpdateStatus(ctx, order.ID, &stranger, func(*models.Order) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for another account, got %v", err)
	}

	var wg sync.WaitGroup
	var moved int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orders.UpdateStatus(context.Background(), order.ID, &account.ID, func(o *models.Order) error {
				if o.Status != models.OrderStatusPending {
					return errAlreadyMoved
				}
				o.Status = models.OrderStatusConfirmed
				o.UpdatedAt = t0.Add(time.Minute)
				return nil
			})
			switch {
			case err == nil:
				atomic.AddInt32(&moved, 1)
			case !errors.Is(err, errAlreadyMoved):
				t.Errorf("UpdateStatus failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if moved != 1 {
		t.Errorf("Expected exactly one caller to move the order, got %d", moved)
	}

	stored, err := orders.Get(ctx, order.ID, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != models.OrderStatusConfirmed {
		t.Errorf("Expected confirmed order, got %s", stored.Status)
	}
}
