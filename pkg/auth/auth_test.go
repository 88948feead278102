package auth

import (
	"context"
	"testing"

	"github.com/example/marketplace/pkg/marketplace"
	"github.com/example/marketplace/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(repository.NewMemoryStore(), nil, nil, zap.NewNop())
}

func validCreds() Credentials {
	return Credentials{
		FirstName:  "Ada",
		SecondName: "Lovelace",
		Email:      "ada@example.com",
		Password:   "s3cret",
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	token, err := svc.Register(ctx, validCreds())
	require.NoError(t, err)
	assert.Len(t, token, 40) // 20 random bytes, hex encoded

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Lovelace", user.LastName)
	assert.True(t, user.Active)
}

func TestRegisterHashesPassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	token, err := svc.Register(ctx, validCreds())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, validCreds())
	require.NoError(t, err)

	creds := validCreds()
	creds.FirstName = "Other"
	_, err = svc.Register(ctx, creds)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := map[string]Credentials{
		"missing first name": {Email: "a@b.c", Password: "x"},
		"missing email":      {FirstName: "A", Password: "x"},
		"missing password":   {FirstName: "A", Email: "a@b.c"},
		"bad email":          {FirstName: "A", Email: "not-an-email", Password: "x"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, creds)
			var verr *marketplace.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestAuthenticateUnknownToken(t *testing.T) {
	svc := newTestService()

	_, err := svc.Authenticate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	svc := newTestService()

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensAreUnique(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	t1, err := svc.Register(ctx, validCreds())
	require.NoError(t, err)

	creds := validCreds()
	creds.Email = "grace@example.com"
	t2, err := svc.Register(ctx, creds)
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
}
