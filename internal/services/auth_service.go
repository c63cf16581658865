package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/utils"
)

type challengeRequest struct {
	Email string `validate:"required,email,max=254"`
}

type verifyRequest struct {
	Email string `validate:"required,email,max=254"`
	Code  string `validate:"required,len=6,number"`
}

// ChallengeReceipt tells the caller a code is on its way.
type ChallengeReceipt struct {
	Accepted  bool
	ExpiresAt time.Time
}

// AuthResult is returned after a successful sign-in.
type AuthResult struct {
	Account   *models.Account
	Token     string
	ExpiresAt time.Time
	Created   bool
}

// AuthService runs the passwordless sign-in flow.
type AuthService struct {
	challenges *ChallengeService
	identities *IdentityService
	sessions   *utils.SessionTokens
	notifier   Notifier
	now        func() time.Time
	logger     *zerolog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	challenges *ChallengeService,
	identities *IdentityService,
	sessions *utils.SessionTokens,
	notifier Notifier,
	now func() time.Time,
	logger *zerolog.Logger,
) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		challenges: challenges,
		identities: identities,
		sessions:   sessions,
		notifier:   notifier,
		now:        now,
		logger:     logger,
	}
}

// RequestChallenge issues a code for email and delivers it.
// If delivery fails the stored code is expired so it can never be used.
func (s *AuthService) RequestChallenge(ctx context.Context, email string) (*ChallengeReceipt, error) {
	email = NormalizeEmail(email)
	if err := validateStruct(challengeRequest{Email: email}); err != nil {
		return nil, err
	}

	challenge, err := s.challenges.IssueChallenge(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendCode(ctx, email, challenge.Code, challenge.ExpiresAt); err != nil {
		s.logger.Warn().Err(err).Str("identity", email).Msg("one-time code delivery failed")
		if err := s.challenges.Invalidate(ctx, email); err != nil {
			s.logger.Error().Err(err).Str("identity", email).Msg("failed to expire undelivered challenge")
		}
		return nil, newError(ErrDelivery, "delivery_failed", "could not deliver the code, please request a new one")
	}

	return &ChallengeReceipt{Accepted: true, ExpiresAt: challenge.ExpiresAt}, nil
}

// VerifyAndAuthenticate exchanges a valid code for a session, provisioning the account
// on first sign-in. Every code failure is reported as the same opaque error.
func (s *AuthService) VerifyAndAuthenticate(ctx context.Context, email, code string, profile Profile) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if err := validateStruct(verifyRequest{Email: email, Code: code}); err != nil {
		return nil, err
	}

	result, err := s.challenges.VerifyChallenge(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		s.logger.Info().
			Str("identity", email).
			Str("reason", string(result.Reason)).
			Msg("verification rejected")
		return nil, invalidCodeError()
	}

	account, created, err := s.identities.ResolveIdentity(ctx, email, profile)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueSession(account)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Account:   account,
		Token:     token,
		ExpiresAt: s.now().Add(s.sessions.TTL()),
		Created:   created,
	}, nil
}

// IssueSession signs a session token bound to account.
func (s *AuthService) IssueSession(account *models.Account) (string, error) {
	return s.sessions.GenerateToken(account.ID, account.Email)
}

// Authenticate validates a session token.
func (s *AuthService) Authenticate(token string) (*utils.SessionClaims, error) {
	claims, err := s.sessions.ParseToken(token)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid_session", "invalid or expired session")
	}
	return claims, nil
}
