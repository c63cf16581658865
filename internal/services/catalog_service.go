package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/repository"
)

// MealPlanInput is the operator-editable part of a meal plan.
type MealPlanInput struct {
	Slug         string  `validate:"required,max=64"`
	Name         string  `validate:"required,max=120"`
	Description  string  `validate:"max=2000"`
	MealsPerWeek int     `validate:"gt=0,lte=21"`
	Price        float64 `validate:"gt=0"`
	Currency     string  `validate:"omitempty,len=3,alpha"`
	IsActive     *bool
}

func (in MealPlanInput) normalized() MealPlanInput {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
	return in
}

func (in MealPlanInput) apply(plan *models.MealPlan) {
	plan.Slug = in.Slug
	plan.Name = in.Name
	plan.Description = in.Description
	plan.MealsPerWeek = in.MealsPerWeek
	plan.Price = in.Price
	plan.Currency = in.Currency
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
}

// DefaultMealPlans is the catalog a fresh deployment starts with.
var DefaultMealPlans = []MealPlanInput{
	{Slug: "starter", Name: "Starter", Description: "Three chef-made dinners a week.", MealsPerWeek: 3, Price: 39.90},
	{Slug: "family", Name: "Family", Description: "Five dinners a week for four.", MealsPerWeek: 5, Price: 119.00},
	{Slug: "full-week", Name: "Full Week", Description: "Lunch and dinner every weekday.", MealsPerWeek: 10, Price: 149.50},
}

// CatalogService manages the meal plans customers can order.
type CatalogService struct {
	plans  repository.MealPlanRepository
	logger *zerolog.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(plans repository.MealPlanRepository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{plans: plans, logger: logger}
}

// ListMealPlans returns the catalog, cheapest first.
func (s *CatalogService) ListMealPlans(ctx context.Context, activeOnly bool) ([]models.MealPlan, error) {
	return s.plans.List(ctx, activeOnly)
}

// GetMealPlan returns one plan. Inactive plans are hidden unless includeInactive is set.
func (s *CatalogService) GetMealPlan(ctx context.Context, id uuid.UUID, includeInactive bool) (*models.MealPlan, error) {
	plan, err := s.plans.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !plan.IsActive && !includeInactive) {
		return nil, mealPlanNotFoundError()
	}
	return plan, err
}

// CreateMealPlan adds a plan. New plans are active unless IsActive says otherwise.
func (s *CatalogService) CreateMealPlan(ctx context.Context, input MealPlanInput) (*models.MealPlan, error) {
	input = input.normalized()
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	plan := &models.MealPlan{IsActive: true}
	input.apply(plan)
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, translatePlanError(err)
	}

	s.logger.Info().Str("slug", plan.Slug).Msg("meal plan created")
	return plan, nil
}

// UpdateMealPlan replaces the editable fields of a plan.
func (s *CatalogService) UpdateMealPlan(ctx context.Context, id uuid.UUID, input MealPlanInput) (*models.MealPlan, error) {
	input = input.normalized()
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	plan, err := s.GetMealPlan(ctx, id, true)
	if err != nil {
		return nil, err
	}

	input.apply(plan)
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, translatePlanError(err)
	}
	return plan, nil
}

// SeedDefaults creates DefaultMealPlans when the catalog is empty.
func (s *CatalogService) SeedDefaults(ctx context.Context) error {
	existing, err := s.plans.List(ctx, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, input := range DefaultMealPlans {
		if _, err := s.CreateMealPlan(ctx, input); err != nil {
			return err
		}
	}
	s.logger.Info().Int("count", len(DefaultMealPlans)).Msg("seeded default meal plans")
	return nil
}

func translatePlanError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return newError(ErrConflict, "slug_in_use", "a meal plan with this slug already exists")
	case errors.Is(err, repository.ErrNotFound):
		return mealPlanNotFoundError()
	}
	return err
}

func mealPlanNotFoundError() *Error {
	return newError(ErrNotFound, "meal_plan_not_found", "meal plan not found")
}
