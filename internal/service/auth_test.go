package service

import (
	"context"
	"testing"
	"time"

	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provisionOwner(t *testing.T, svc *DefaultService, code string) *models.Owner {
	t.Helper()

	hash, err := HashAccessCode(code)
	require.NoError(t, err)

	owner, err := svc.repo.SaveOwner(context.Background(), hash)
	require.NoError(t, err)
	return owner
}

func TestSignIn(t *testing.T) {
	svc, _ := newTestService(t, testNow)
	ctx := context.Background()

	// Test case 1: Unprovisioned store
	_, err := svc.SignIn(ctx, models.SignInRequest{AccessCode: "secret"})
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))

	owner := provisionOwner(t, svc, "secret")

	// Test case 2: Empty code
	_, err = svc.SignIn(ctx, models.SignInRequest{AccessCode: "  "})
	assert.True(t, ierr.IsValidation(err))

	// Test case 3: Wrong code
	_, err = svc.SignIn(ctx, models.SignInRequest{AccessCode: "wrong"})
	assert.True(t, ierr.IsUnauthorized(err))

	// Test case 4: Success
	resp, err := svc.SignIn(ctx, models.SignInRequest{AccessCode: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 43200, resp.ExpiresIn)

	ownerID, err := svc.Authenticate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, ownerID)
}

func TestAuthenticateExpiry(t *testing.T) {
	svc, repo := newTestService(t, testNow)
	provisionOwner(t, svc, "secret")

	resp, err := svc.SignIn(context.Background(), models.SignInRequest{AccessCode: "secret"})
	require.NoError(t, err)

	almost := NewDefaultService(repo, "test-secret", WithClock(func() time.Time {
		return testNow.Add(TokenDuration - time.Minute)
	}))
	_, err = almost.Authenticate(resp.Token)
	assert.NoError(t, err)

	later := NewDefaultService(repo, "test-secret", WithClock(func() time.Time {
		return testNow.Add(TokenDuration + time.Minute)
	}))
	_, err = later.Authenticate(resp.Token)
	assert.True(t, ierr.IsUnauthorized(err))
}

func TestAuthenticateRejects(t *testing.T) {
	svc, repo := newTestService(t, testNow)
	provisionOwner(t, svc, "secret")

	resp, err := svc.SignIn(context.Background(), models.SignInRequest{AccessCode: "secret"})
	require.NoError(t, err)

	other := NewDefaultService(repo, "another-secret", WithClock(func() time.Time { return testNow }))

	tests := []struct {
		name  string
		svc   *DefaultService
		token string
	}{
		{"empty", svc, ""},
		{"garbage", svc, "not.a.jwt"},
		{"foreign secret", other, resp.Token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Authenticate(tt.token)
			require.Error(t, err)
			assert.True(t, ierr.IsUnauthorized(err))
		})
	}
}

func TestHashAccessCode(t *testing.T) {
	first, err := HashAccessCode("secret")
	require.NoError(t, err)
	second, err := HashAccessCode("secret")
	require.NoError(t, err)

	assert.NotEqual(t, "secret", first)
	assert.NotEqual(t, first, second, "hashes are salted")
}
