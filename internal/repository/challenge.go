package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/mealbox/internal/models"
)

type challengeGormRepository struct {
	db *gorm.DB
}

// NewChallengeGormRepository returns a ChallengeRepository backed by gorm.
func NewChallengeGormRepository(db *gorm.DB) ChallengeRepository {
	return &challengeGormRepository{db: db}
}

func (r *challengeGormRepository) Upsert(ctx context.Context, challenge *models.Challenge) error {
	challenge.Attempts = 0
	challenge.Consumed = false
	challenge.ConsumedAt = nil
	challenge.UpdatedAt = challenge.CreatedAt

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}},
			DoUpdates: clause.Assignments(map[string]any{
				"code":        challenge.Code,
				"attempts":    0,
				"consumed":    false,
				"consumed_at": nil,
				"created_at":  challenge.CreatedAt,
				"expires_at":  challenge.ExpiresAt,
				"updated_at":  challenge.UpdatedAt,
			}),
		}).
		Create(challenge).Error
	return translateError(err)
}

func (r *challengeGormRepository) Get(ctx context.Context, identity string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, "identity = ?", identity).Error; err != nil {
		return nil, translateError(err)
	}
	return &challenge, nil
}

func (r *challengeGormRepository) Consume(
	ctx context.Context,
	identity, code string,
	now time.Time,
	maxAttempts int,
) (*models.Challenge, bool, error) {
	var consumed []models.Challenge
	result := r.db.WithContext(ctx).
		Model(&consumed).
		Clauses(clause.Returning{}).
		Where("identity = ? AND code = ? AND consumed = ? AND expires_at > ? AND attempts < ?",
			identity, code, false, now, maxAttempts).
		Updates(map[string]any{
			"consumed":    true,
			"consumed_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return nil, false, translateError(result.Error)
	}
	if result.RowsAffected == 1 && len(consumed) == 1 {
		return &consumed[0], true, nil
	}

	current, err := r.Get(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *challengeGormRepository) RecordFailedAttempt(ctx context.Context, identity string, now time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("identity = ? AND consumed = ?", identity, false).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		}).Error
	return translateError(err)
}

func (r *challengeGormRepository) Expire(ctx context.Context, identity string, now time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("identity = ? AND expires_at > ?", identity, now).
		Updates(map[string]any{
			"expires_at": now,
			"updated_at": now,
		}).Error
	return translateError(err)
}
