package services

import (
	"context"
	"testing"
	"time"

	"pennywise/internal/auth"
	"pennywise/internal/testutil"
)

func newAuthServiceForTest(t *testing.T, refreshEnabled bool) (AuthServicer, *auth.Manager, *recordingAudit) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	refreshTTL := time.Duration(0)
	var store RefreshTokenStore
	if refreshEnabled {
		refreshTTL = 24 * time.Hour
		store = NewGormRefreshTokenStore(db)
	}

	tokens := auth.NewManager("test-secret", time.Hour, refreshTTL)
	audit := &recordingAudit{}
	return NewAuthService(NewUserService(db), tokens, store, audit), tokens, audit
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, tokens, audit := newAuthServiceForTest(t, false)

	user, pair, err := svc.Register(ctx, "a@x.com", "pw")
	testutil.AssertNoError(t, err)
	if pair.RefreshToken != "" {
		t.Error("expected no refresh token when refresh is disabled")
	}

	claims, err := tokens.VerifyAccessToken(pair.AccessToken)
	testutil.AssertNoError(t, err)
	if claims.UserID != user.ID || claims.Email != "a@x.com" {
		t.Errorf("unexpected claims %+v", claims)
	}

	_, _, err = svc.Register(ctx, "a@x.com", "other")
	testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")

	loggedIn, loginPair, err := svc.Login(ctx, "a@x.com", "pw")
	testutil.AssertNoError(t, err)
	if loggedIn.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, loggedIn.ID)
	}
	if _, err := tokens.VerifyAccessToken(loginPair.AccessToken); err != nil {
		t.Errorf("login token should verify: %v", err)
	}

	_, _, err = svc.Login(ctx, "a@x.com", "wrong")
	testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

	if len(audit.actions) != 2 || audit.actions[0] != "REGISTER" || audit.actions[1] != "LOGIN" {
		t.Errorf("expected REGISTER and LOGIN audit entries, got %v", audit.actions)
	}
}

func TestAuthService_RefreshDisabled(t *testing.T) {
	svc, _, _ := newAuthServiceForTest(t, false)

	if svc.RefreshEnabled() {
		t.Fatal("expected refresh to be disabled")
	}
	_, err := svc.Refresh(context.Background(), "anything")
	testutil.AssertAppError(t, err, "NOT_FOUND")
	testutil.AssertNoError(t, svc.Logout(context.Background(), "anything"))
}

func TestAuthService_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	svc, tokens, _ := newAuthServiceForTest(t, true)

	user, pair, err := svc.Register(ctx, "a@x.com", "pw")
	testutil.AssertNoError(t, err)
	if pair.RefreshToken == "" {
		t.Fatal("expected a refresh token")
	}

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	testutil.AssertNoError(t, err)
	if rotated.RefreshToken == pair.RefreshToken {
		t.Error("expected a new refresh token")
	}
	claims, err := tokens.VerifyAccessToken(rotated.AccessToken)
	testutil.AssertNoError(t, err)
	if claims.UserID != user.ID {
		t.Errorf("expected refreshed token for %s, got %s", user.ID, claims.UserID)
	}

	// the consumed token cannot be replayed
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	testutil.AssertAppError(t, err, "INVALID_TOKEN")

	// an access token is not a refresh token
	_, err = svc.Refresh(ctx, rotated.AccessToken)
	testutil.AssertAppError(t, err, "INVALID_TOKEN")

	testutil.AssertNoError(t, svc.Logout(ctx, rotated.RefreshToken))
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	testutil.AssertAppError(t, err, "INVALID_TOKEN")
}
