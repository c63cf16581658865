package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/example/mealbox/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate key")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrDuplicatePhone = errors.New("phone already in use")
)

// ChallengeRepository persists at most one outstanding challenge per identity.
type ChallengeRepository interface {
	// Upsert replaces any stored challenge for the identity.
	Upsert(ctx context.Context, challenge *models.Challenge) error
	Get(ctx context.Context, identity string) (*models.Challenge, error)
	// Consume marks the challenge consumed iff it is unconsumed, unexpired at now, below
	// maxAttempts and its code matches, as one atomic step. When ok is false the returned
	// challenge is the current stored row (nil if none) so callers can tell why.
	Consume(ctx context.Context, identity, code string, now time.Time, maxAttempts int) (challenge *models.Challenge, ok bool, err error)
	// RecordFailedAttempt increments the attempt counter of an unconsumed challenge.
	RecordFailedAttempt(ctx context.Context, identity string, now time.Time) error
	// Expire makes the stored challenge unusable from now on.
	Expire(ctx context.Context, identity string, now time.Time) error
}

// UpdateAccountParams defines the optional parameters for updating an account.
// Only the fields that are not nil will be updated.
type UpdateAccountParams struct {
	Name       *string
	Phone      *string
	Address    *string
	City       *string
	State      *string
	PostalCode *string
}

// IsEmpty reports whether no field would change.
func (p UpdateAccountParams) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil &&
		p.City == nil && p.State == nil && p.PostalCode == nil
}

// AccountRepository stores customer accounts with unique email and phone.
type AccountRepository interface {
	// Create fails with ErrDuplicateEmail or ErrDuplicatePhone on uniqueness violations.
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateAccountParams, now time.Time) (*models.Account, error)
}

// OrderFilter narrows order listings. A nil AccountID lists every account's orders.
type OrderFilter struct {
	AccountID *uuid.UUID
	Status    models.OrderStatus
	Search    string
	Limit     int
	Offset    int
}

// OrderRepository stores orders. Methods taking an accountID pointer scope the lookup to
// that owner when it is non-nil and report ErrNotFound for orders owned by someone else.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID, accountID *uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// UpdateStatus loads the order under a row lock, lets apply mutate it and persists
	// status and updated_at. An error from apply aborts without writing.
	UpdateStatus(ctx context.Context, id uuid.UUID, accountID *uuid.UUID, apply func(*models.Order) error) (*models.Order, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error)
}

// MealPlanRepository stores the orderable catalog.
type MealPlanRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.MealPlan, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MealPlan, error)
	Create(ctx context.Context, plan *models.MealPlan) error
	Update(ctx context.Context, plan *models.MealPlan) error
}

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "phone"):
			return ErrDuplicatePhone
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrDuplicateEmail
		}
		return ErrDuplicate
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	return err
}
