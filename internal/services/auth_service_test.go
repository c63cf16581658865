package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestChallenge_DeliversCode(t *testing.T) {
	env := newTestEnv(t)

	receipt, err := env.auth.RequestChallenge(context.Background(), "  Jane@Example.COM ")
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	if !receipt.Accepted {
		t.Errorf("Expected receipt to be accepted")
	}
	if !receipt.ExpiresAt.Equal(t0.Add(10 * time.Minute)) {
		t.Errorf("Expected expiry %v, got %v", t0.Add(10*time.Minute), receipt.ExpiresAt)
	}
	if code, ok := env.notifier.LastCode("jane@example.com"); !ok || code != "100001" {
		t.Errorf("Expected code 100001 for normalized email, got %q (%v)", code, ok)
	}
}

func TestRequestChallenge_RejectsBadEmail(t *testing.T) {
	env := newTestEnv(t)

	for _, email := range []string{"", "not-an-email", "a@"} {
		_, err := env.auth.RequestChallenge(context.Background(), email)
		assertKind(t, err, ErrValidation, "invalid_email")
	}
}

func TestRequestChallenge_SecondChallengeInvalidatesFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "jane@example.com"

	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	first, _ := env.notifier.LastCode(email)

	env.clock.Advance(61 * time.Second)
	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("second RequestChallenge failed: %v", err)
	}
	second, _ := env.notifier.LastCode(email)
	if first == second {
		t.Fatalf("Expected distinct codes, got %s twice", first)
	}

	_, err := env.auth.VerifyAndAuthenticate(ctx, email, first, Profile{Name: "Jane"})
	assertKind(t, err, ErrInvalidOrExpiredCode, "invalid_or_expired_code")

	if _, err := env.auth.VerifyAndAuthenticate(ctx, email, second, Profile{Name: "Jane"}); err != nil {
		t.Fatalf("Expected second code to verify, got %v", err)
	}
}

func TestRequestChallenge_ResendTooSoon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.RequestChallenge(ctx, "jane@example.com"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	env.clock.Advance(30 * time.Second)
	_, err := env.auth.RequestChallenge(ctx, "jane@example.com")
	assertKind(t, err, ErrTooManyRequests, "resend_too_soon")
}

func TestRequestChallenge_DeliveryFailureExpiresChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "jane@example.com"

	env.notifier.Fail = true
	_, err := env.auth.RequestChallenge(ctx, email)
	assertKind(t, err, ErrDelivery, "delivery_failed")

	stored, err := env.store.Challenges().Get(ctx, email)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.IsLive(env.clock.Now()) {
		t.Fatalf("Expected undelivered challenge to be unusable")
	}
	_, err = env.auth.VerifyAndAuthenticate(ctx, email, stored.Code, Profile{Name: "Jane"})
	assertKind(t, err, ErrInvalidOrExpiredCode, "")

	// A retry is not blocked by the resend interval.
	env.notifier.Fail = false
	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("Expected retry after delivery failure to succeed, got %v", err)
	}
}

func TestVerify_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "jane@example.com"

	env.signIn(t, email, Profile{Name: "Jane"})
	code, _ := env.notifier.LastCode(email)

	_, err := env.auth.VerifyAndAuthenticate(ctx, email, code, Profile{})
	assertKind(t, err, ErrInvalidOrExpiredCode, "invalid_or_expired_code")
}

func TestVerify_Expiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.RequestChallenge(ctx, "late@example.com"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	if _, err := env.auth.RequestChallenge(ctx, "ontime@example.com"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	late, _ := env.notifier.LastCode("late@example.com")
	onTime, _ := env.notifier.LastCode("ontime@example.com")

	env.clock.Advance(599 * time.Second)
	if _, err := env.auth.VerifyAndAuthenticate(ctx, "ontime@example.com", onTime, Profile{Name: "On Time"}); err != nil {
		t.Fatalf("Expected code to verify before expiry, got %v", err)
	}

	env.clock.Advance(2 * time.Second)
	_, err := env.auth.VerifyAndAuthenticate(ctx, "late@example.com", late, Profile{Name: "Late"})
	assertKind(t, err, ErrInvalidOrExpiredCode, "")
}

func TestVerify_ConcurrentSubmissionsSucceedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "race@example.com"

	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	code, _ := env.notifier.LastCode(email)

	const callers = 32
	var wg sync.WaitGroup
	var succeeded, rejected atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.auth.VerifyAndAuthenticate(ctx, email, code, Profile{Name: "Racer"})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrInvalidOrExpiredCode):
				rejected.Add(1)
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Fatalf("Expected exactly one success, got %d", succeeded.Load())
	}
	if rejected.Load() != callers-1 {
		t.Errorf("Expected %d rejections, got %d", callers-1, rejected.Load())
	}
}

func TestVerify_LocksAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "jane@example.com"

	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	code, _ := env.notifier.LastCode(email)

	for i := 0; i < 5; i++ {
		_, err := env.auth.VerifyAndAuthenticate(ctx, email, "999999", Profile{Name: "Jane"})
		assertKind(t, err, ErrInvalidOrExpiredCode, "")
	}

	result, err := env.challenges.VerifyChallenge(ctx, email, code)
	if err != nil {
		t.Fatalf("VerifyChallenge failed: %v", err)
	}
	if result.Valid || result.Reason != VerifyReasonLocked {
		t.Errorf("Expected locked result, got %+v", result)
	}
}

func TestVerify_RejectsMalformedCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "jane@example.com"

	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	for _, code := range []string{"", "12345", "1234567", "12a456", "12.345", "+12345", "-12345", "1.0000"} {
		_, err := env.auth.VerifyAndAuthenticate(ctx, email, code, Profile{})
		assertKind(t, err, ErrValidation, "invalid_code")
	}

	challenge, err := env.store.Challenges().Get(ctx, email)
	if err != nil {
		t.Fatalf("Get challenge failed: %v", err)
	}
	if challenge.Attempts != 0 {
		t.Errorf("Expected malformed codes to leave attempts at 0, got %d", challenge.Attempts)
	}
}

func TestVerify_NewIdentityRequiresName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "noname@example.com"

	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	code, _ := env.notifier.LastCode(email)

	_, err := env.auth.VerifyAndAuthenticate(ctx, email, code, Profile{})
	assertKind(t, err, ErrValidation, "name_required")

	if _, err := env.store.Accounts().GetByEmail(ctx, email); err == nil {
		t.Errorf("Expected no account to be created without a name")
	}
}

func TestVerify_PhoneConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signIn(t, "first@example.com", Profile{Name: "First", Phone: "+15550001111"})

	email := "second@example.com"
	if _, err := env.auth.RequestChallenge(ctx, email); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	code, _ := env.notifier.LastCode(email)

	_, err := env.auth.VerifyAndAuthenticate(ctx, email, code, Profile{Name: "Second", Phone: "+15550001111"})
	assertKind(t, err, ErrConflict, "phone_in_use")
}

func TestVerify_ExistingAccountKeepsUnsuppliedFields(t *testing.T) {
	env := newTestEnv(t)
	email := "jane@example.com"

	first := env.signIn(t, email, Profile{Name: "Jane", City: "Springfield", Address: "1 Main St"})
	if !first.Created {
		t.Fatalf("Expected first sign-in to create the account")
	}

	env.clock.Advance(2 * time.Minute)
	second := env.signIn(t, email, Profile{City: "Shelbyville"})
	if second.Created {
		t.Errorf("Expected second sign-in to reuse the account")
	}
	if second.Account.ID != first.Account.ID {
		t.Errorf("Expected same account id")
	}
	if second.Account.Name != "Jane" || second.Account.Address != "1 Main St" || second.Account.City != "Shelbyville" {
		t.Errorf("Unexpected account after update: %+v", second.Account)
	}
}

func TestSession_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	result := env.signIn(t, "jane@example.com", Profile{Name: "Jane"})
	if !result.ExpiresAt.Equal(t0.Add(30 * 24 * time.Hour)) {
		t.Errorf("Expected 30 day session, got expiry %v", result.ExpiresAt)
	}

	claims, err := env.auth.Authenticate(result.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if claims.AccountUUID() != result.Account.ID || claims.Email != "jane@example.com" {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	env.clock.Advance(31 * 24 * time.Hour)
	_, err = env.auth.Authenticate(result.Token)
	assertKind(t, err, ErrUnauthorized, "invalid_session")
}
