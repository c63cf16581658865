package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/repository"
	"github.com/example/mealbox/internal/utils"
)

// VerifyReason explains why a verification attempt failed. It is for logs only.
type VerifyReason string

const (
	VerifyReasonNone        VerifyReason = ""
	VerifyReasonNotFound    VerifyReason = "not_found"
	VerifyReasonExpired     VerifyReason = "expired"
	VerifyReasonAlreadyUsed VerifyReason = "already_used"
	VerifyReasonMismatch    VerifyReason = "mismatch"
	VerifyReasonLocked      VerifyReason = "locked"
)

// VerifyResult is the outcome of VerifyChallenge.
type VerifyResult struct {
	Valid  bool
	Reason VerifyReason
}

// ChallengeConfig tunes challenge issuance and verification.
type ChallengeConfig struct {
	TTL            time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
}

// ChallengeService issues and verifies one-time codes.
type ChallengeService struct {
	repo     repository.ChallengeRepository
	cfg      ChallengeConfig
	now      func() time.Time
	generate func() string
	logger   *zerolog.Logger
}

// NewChallengeService constructs a ChallengeService. A nil clock defaults to time.Now.
func NewChallengeService(
	repo repository.ChallengeRepository,
	cfg ChallengeConfig,
	now func() time.Time,
	logger *zerolog.Logger,
) *ChallengeService {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &ChallengeService{
		repo:     repo,
		cfg:      cfg,
		now:      now,
		generate: utils.GenerateCode,
		logger:   logger,
	}
}

// IssueChallenge stores a fresh code for identity, replacing any earlier one.
func (s *ChallengeService) IssueChallenge(ctx context.Context, identity string) (*models.Challenge, error) {
	now := s.now()

	if s.cfg.ResendInterval > 0 {
		existing, err := s.repo.Get(ctx, identity)
		switch {
		case err == nil:
			if existing.IsLive(now) && now.Sub(existing.CreatedAt) < s.cfg.ResendInterval {
				return nil, newError(ErrTooManyRequests, "resend_too_soon",
					"a code was sent recently, please wait before requesting another")
			}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	challenge := &models.Challenge{
		Identity:  identity,
		Code:      s.generate(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.repo.Upsert(ctx, challenge); err != nil {
		return nil, err
	}

	return challenge, nil
}

// VerifyChallenge consumes the challenge for identity if code is currently valid.
// Consumption is a single conditional write, so concurrent callers cannot both succeed.
func (s *ChallengeService) VerifyChallenge(ctx context.Context, identity, code string) (VerifyResult, error) {
	now := s.now()

	current, ok, err := s.repo.Consume(ctx, identity, code, now, s.cfg.MaxAttempts)
	if err != nil {
		return VerifyResult{}, err
	}
	if ok {
		return VerifyResult{Valid: true}, nil
	}

	reason := s.classify(current, code, now)
	if reason == VerifyReasonMismatch {
		if err := s.repo.RecordFailedAttempt(ctx, identity, now); err != nil {
			s.logger.Error().Err(err).Str("identity", identity).Msg("failed to record verification attempt")
		}
	}

	return VerifyResult{Valid: false, Reason: reason}, nil
}

// Invalidate makes any outstanding challenge for identity unusable.
func (s *ChallengeService) Invalidate(ctx context.Context, identity string) error {
	return s.repo.Expire(ctx, identity, s.now())
}

func (s *ChallengeService) classify(current *models.Challenge, code string, now time.Time) VerifyReason {
	switch {
	case current == nil:
		return VerifyReasonNotFound
	case current.Consumed:
		return VerifyReasonAlreadyUsed
	case current.IsExpired(now):
		return VerifyReasonExpired
	case current.Attempts >= s.cfg.MaxAttempts:
		return VerifyReasonLocked
	default:
		return VerifyReasonMismatch
	}
}
