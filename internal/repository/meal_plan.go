package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/mealbox/internal/models"
)

type mealPlanGormRepository struct {
	db *gorm.DB
}

// NewMealPlanGormRepository returns a MealPlanRepository backed by gorm.
func NewMealPlanGormRepository(db *gorm.DB) MealPlanRepository {
	return &mealPlanGormRepository{db: db}
}

func (r *mealPlanGormRepository) List(ctx context.Context, activeOnly bool) ([]models.MealPlan, error) {
	query := r.db.WithContext(ctx).Model(&models.MealPlan{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var plans []models.MealPlan
	if err := query.Order("price asc").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *mealPlanGormRepository) Get(ctx context.Context, id uuid.UUID) (*models.MealPlan, error) {
	var plan models.MealPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &plan, nil
}

func (r *mealPlanGormRepository) Create(ctx context.Context, plan *models.MealPlan) error {
	return translateError(r.db.WithContext(ctx).Create(plan).Error)
}

func (r *mealPlanGormRepository) Update(ctx context.Context, plan *models.MealPlan) error {
	result := r.db.WithContext(ctx).Model(plan).Select("*").Omit("created_at").Updates(plan)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
