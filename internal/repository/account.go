package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/mealbox/internal/models"
)

type accountGormRepository struct {
	db *gorm.DB
}

// NewAccountGormRepository returns an AccountRepository backed by gorm. Uniqueness of email
// and phone is enforced by the idx_accounts_email and idx_accounts_phone indexes.
func NewAccountGormRepository(db *gorm.DB) AccountRepository {
	return &accountGormRepository{db: db}
}

func (r *accountGormRepository) Create(ctx context.Context, account *models.Account) error {
	return translateError(r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountGormRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *accountGormRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *accountGormRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *accountGormRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	params UpdateAccountParams,
	now time.Time,
) (*models.Account, error) {
	updates := map[string]any{}
	if params.Name != nil {
		updates["name"] = *params.Name
	}
	if params.Phone != nil {
		updates["phone"] = *params.Phone
	}
	if params.Address != nil {
		updates["address"] = *params.Address
	}
	if params.City != nil {
		updates["city"] = *params.City
	}
	if params.State != nil {
		updates["state"] = *params.State
	}
	if params.PostalCode != nil {
		updates["postal_code"] = *params.PostalCode
	}

	if len(updates) > 0 {
		updates["updated_at"] = now
		result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *accountGormRepository) first(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where(query, args...).First(&account).Error; err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}
