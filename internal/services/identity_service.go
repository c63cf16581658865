package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/repository"
)

// Profile carries optional account fields. Empty values never overwrite stored ones.
type Profile struct {
	Name       string `validate:"max=120"`
	Phone      string `validate:"omitempty,min=7,max=20"`
	Address    string `validate:"max=255"`
	City       string `validate:"max=120"`
	State      string `validate:"max=120"`
	PostalCode string `validate:"max=20"`
}

func (p Profile) trimmed() Profile {
	return Profile{
		Name:       strings.TrimSpace(p.Name),
		Phone:      strings.TrimSpace(p.Phone),
		Address:    strings.TrimSpace(p.Address),
		City:       strings.TrimSpace(p.City),
		State:      strings.TrimSpace(p.State),
		PostalCode: strings.TrimSpace(p.PostalCode),
	}
}

func (p Profile) updateParams() repository.UpdateAccountParams {
	var params repository.UpdateAccountParams
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	set(&params.Name, p.Name)
	set(&params.Phone, p.Phone)
	set(&params.Address, p.Address)
	set(&params.City, p.City)
	set(&params.State, p.State)
	set(&params.PostalCode, p.PostalCode)
	return params
}

// IdentityService maps verified emails to accounts.
type IdentityService struct {
	accounts repository.AccountRepository
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewIdentityService constructs an IdentityService. A nil clock defaults to time.Now.
func NewIdentityService(accounts repository.AccountRepository, now func() time.Time, logger *zerolog.Logger) *IdentityService {
	if now == nil {
		now = time.Now
	}
	return &IdentityService{accounts: accounts, now: now, logger: logger}
}

// ResolveIdentity returns the account for email, creating it on first sign-in.
// created reports whether a new account was provisioned.
func (s *IdentityService) ResolveIdentity(ctx context.Context, email string, profile Profile) (account *models.Account, created bool, err error) {
	email = NormalizeEmail(email)
	profile = profile.trimmed()
	if err := validateStruct(profile); err != nil {
		return nil, false, err
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		account, err = s.update(ctx, existing, profile)
		return account, false, err
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	account, err = s.create(ctx, email, profile)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// A concurrent sign-in created the account first.
		existing, err := s.accounts.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		account, err = s.update(ctx, existing, profile)
		return account, false, err
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info().Str("account_id", account.ID.String()).Msg("account created")
	return account, true, nil
}

// UpdateProfile applies the non-empty profile fields to an existing account.
func (s *IdentityService) UpdateProfile(ctx context.Context, accountID uuid.UUID, profile Profile) (*models.Account, error) {
	profile = profile.trimmed()
	if err := validateStruct(profile); err != nil {
		return nil, err
	}

	existing, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, existing, profile)
}

// GetAccount loads an account by id.
func (s *IdentityService) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "account_not_found", "account not found")
	}
	return account, err
}

func (s *IdentityService) create(ctx context.Context, email string, profile Profile) (*models.Account, error) {
	if profile.Name == "" {
		return nil, validationError("name_required", "name is required for new accounts")
	}

	if profile.Phone != "" {
		if err := s.ensurePhoneAvailable(ctx, profile.Phone, uuid.Nil); err != nil {
			return nil, err
		}
	}

	account := &models.Account{
		Email:      email,
		Name:       profile.Name,
		Address:    profile.Address,
		City:       profile.City,
		State:      profile.State,
		PostalCode: profile.PostalCode,
	}
	if profile.Phone != "" {
		phone := profile.Phone
		account.Phone = &phone
	}
	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, translateAccountError(err)
	}
	return account, nil
}

func (s *IdentityService) update(ctx context.Context, account *models.Account, profile Profile) (*models.Account, error) {
	params := profile.updateParams()
	if params.IsEmpty() {
		return account, nil
	}

	if params.Phone != nil && *params.Phone != account.PhoneValue() {
		if err := s.ensurePhoneAvailable(ctx, *params.Phone, account.ID); err != nil {
			return nil, err
		}
	}

	updated, err := s.accounts.Update(ctx, account.ID, params, s.now())
	if err != nil {
		return nil, translateAccountError(err)
	}
	return updated, nil
}

// ensurePhoneAvailable is a friendly pre-check; the unique index is the real guard.
func (s *IdentityService) ensurePhoneAvailable(ctx context.Context, phone string, owner uuid.UUID) error {
	holder, err := s.accounts.GetByPhone(ctx, phone)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case holder.ID != owner:
		return phoneInUseError()
	}
	return nil
}

func phoneInUseError() *Error {
	return newError(ErrConflict, "phone_in_use", "phone number is already registered to another account")
}

func translateAccountError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicatePhone):
		return phoneInUseError()
	case errors.Is(err, repository.ErrDuplicateEmail):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "account_not_found", "account not found")
	}
	return err
}

// NormalizeEmail lower-cases and trims an email so it can serve as a natural key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
