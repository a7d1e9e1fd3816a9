package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/repository/postgres"
	"github.com/zeempo/zeempo-gateway/internal/service"
	"github.com/zeempo/zeempo-gateway/internal/testutil"
)

func newAuthService(t *testing.T, testDB *testutil.TestDB) *service.AuthService {
	t.Helper()
	repos := postgres.NewRepositories(testDB.DB)
	tokens := testutil.NewTokenManager(t, testutil.TestConfig())
	return service.NewAuthService(repos.User, tokens, testutil.DiscardLogger())
}

func TestAuthService_Register(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService := newAuthService(t, testDB)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    service.RegisterInput
		setup    func()
		wantErr  error
		wantName string
	}{
		{
			name: "successful registration",
			input: service.RegisterInput{
				Email:    "Ada@Example.com ",
				Password: "password123",
				Name:     "Ada",
			},
			wantName: "Ada",
		},
		{
			name: "name defaults to email local part",
			input: service.RegisterInput{
				Email:    "a@x.com",
				Password: "p@ss1234",
			},
			wantName: "a",
		},
		{
			name: "duplicate email",
			input: service.RegisterInput{
				Email:    "taken@example.com",
				Password: "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("taken@example.com").
					Build(t, testDB.DB)
			},
			wantErr: domain.ErrEmailTaken,
		},
		{
			name: "duplicate email differing in case",
			input: service.RegisterInput{
				Email:    "TAKEN@example.com",
				Password: "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("taken@example.com").
					Build(t, testDB.DB)
			},
			wantErr: domain.ErrEmailTaken,
		},
		{
			name: "display name form rejected",
			input: service.RegisterInput{
				Email:    "Bob <taken@example.com>",
				Password: "password123",
			},
			wantErr: domain.ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			result, err := authService.Register(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, service.NormalizeEmail(tt.input.Email), result.User.Email)
			assert.Equal(t, tt.wantName, result.User.Name)
			assert.Equal(t, domain.PlanFree, result.User.PlanType)
			assert.NotEqual(t, tt.input.Password, result.User.PasswordHash)
			assert.NotEmpty(t, result.AccessToken)
			assert.False(t, result.ExpiresAt.IsZero())
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService := newAuthService(t, testDB)
	ctx := context.Background()

	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("login@example.com").
		WithPassword("correctpassword").
		Build(t, testDB.DB)

	tests := []struct {
		name    string
		input   service.LoginInput
		wantErr error
	}{
		{
			name:  "successful login",
			input: service.LoginInput{Email: "login@example.com", Password: rawPassword},
		},
		{
			name:  "email is case insensitive",
			input: service.LoginInput{Email: "LOGIN@example.com", Password: rawPassword},
		},
		{
			name:    "wrong password",
			input:   service.LoginInput{Email: "login@example.com", Password: "wrongpassword"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "unknown email",
			input:   service.LoginInput{Email: "nobody@example.com", Password: rawPassword},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authService.Login(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.NotEmpty(t, result.AccessToken)
		})
	}
}

func TestAuthService_LoginFailuresAreIdentical(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService := newAuthService(t, testDB)
	ctx := context.Background()

	testutil.NewUserBuilder().WithEmail("known@example.com").Build(t, testDB.DB)

	_, unknownErr := authService.Login(ctx, service.LoginInput{Email: "unknown@example.com", Password: "whatever1"})
	_, wrongErr := authService.Login(ctx, service.LoginInput{Email: "known@example.com", Password: "whatever1"})

	require.Error(t, unknownErr)
	assert.Equal(t, unknownErr, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_Me(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService := newAuthService(t, testDB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	got, err := authService.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = authService.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
