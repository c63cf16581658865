package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/mealbox/internal/models"
)

type orderGormRepository struct {
	db *gorm.DB
}

// NewOrderGormRepository returns an OrderRepository backed by gorm.
func NewOrderGormRepository(db *gorm.DB) OrderRepository {
	return &orderGormRepository{db: db}
}

func (r *orderGormRepository) Create(ctx context.Context, order *models.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error)
}

func (r *orderGormRepository) Get(ctx context.Context, id uuid.UUID, accountID *uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := scopeOwner(r.db.WithContext(ctx), accountID).First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *orderGormRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := scopeOwner(r.db.WithContext(ctx).Model(&models.Order{}), filter.AccountID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.Search != "" {
		query = query.Where(
			"order_number ILIKE ? OR delivery_address_line ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Order("placed_at desc").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderGormRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	accountID *uuid.UUID,
	apply func(*models.Order) error,
) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scopeOwner(tx.Clauses(clause.Locking{Strength: "UPDATE"}), accountID).
			Where("id = ?", id).
			First(&order).Error; err != nil {
			return translateError(err)
		}

		if err := apply(&order); err != nil {
			return err
		}

		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"status":     order.Status,
				"updated_at": order.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderGormRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	type statusCount struct {
		Status models.OrderStatus
		Count  int64
	}
	var statusCounts []statusCount
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.OrderStatus]int64, len(statusCounts))
	for _, sc := range statusCounts {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

func scopeOwner(db *gorm.DB, accountID *uuid.UUID) *gorm.DB {
	if accountID == nil {
		return db
	}
	return db.Where("account_id = ?", *accountID)
}
