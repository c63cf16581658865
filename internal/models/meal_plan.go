package models

// MealPlan is a subscription offering customers can order.
type MealPlan struct {
	BaseModel
	Slug         string  `gorm:"uniqueIndex" json:"slug"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	MealsPerWeek int     `json:"meals_per_week"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	IsActive     bool    `json:"is_active"`
}
