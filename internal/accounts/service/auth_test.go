package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	env := newTestEnv(t)

	u := env.register(t, "alice", "password1")

	stored, err := env.store.Users().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotEqual(t, "password1", stored.PasswordHash)
	require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
	require.NoError(t, cryptox.VerifyPassword("password1", stored.PasswordHash))
}

func TestRegister_TrimsIdentityFields(t *testing.T) {
	env := newTestEnv(t)

	u, err := env.auth.Register(context.Background(), RegisterRequest{
		Name:     text("  Alice  "),
		Username: text(" alice "),
		Email:    text(" alice@example.com "),
		Password: text(" spaced password "),
	})
	require.NoError(t, err)
	require.Equal(t, "Alice", u.Name)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "alice@example.com", u.Email)

	// passwords are taken verbatim
	env.login(t, "alice", " spaced password ")
}

func TestRegister_DuplicateIsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password1")

	tests := []struct {
		name     string
		username string
		email    string
		field    string
		want     string
	}{
		{"username", "alice", "other@example.com", "username", "Username is already taken."},
		{"email", "bob", "alice@example.com", "email", "This email is already registered."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), RegisterRequest{
				Name:     text("Someone"),
				Username: text(tt.username),
				Email:    text(tt.email),
				Password: text("password1"),
			})
			se := requireKind(t, err, KindInvalidInput)
			require.Equal(t, MsgInvalidInput, se.Message)
			require.Equal(t, []string{tt.want}, se.Fields[tt.field])
		})
	}

	_, total, err := env.store.Users().ListUsers(context.Background(), listAll)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	var req RegisterRequest
	require.NoError(t, req.Password.UnmarshalJSON([]byte(`12345`)))
	req.Email = text(strings.Repeat("e", 256))
	req.Name = text(strings.Repeat("n", 256))

	_, err := env.auth.Register(context.Background(), req)
	se := requireKind(t, err, KindInvalidInput)

	require.Equal(t, []string{"Name must not exceed 255 characters."}, se.Fields["name"])
	require.Equal(t, []string{"Username is required."}, se.Fields["username"])
	require.Equal(t, []string{"Email must not exceed 255 characters."}, se.Fields["email"])
	require.Equal(t, []string{"Password must be a string."}, se.Fields["password"])
}

func TestRegister_EmailIsFreeText(t *testing.T) {
	env := newTestEnv(t)

	for _, email := range []string{"alice-at-x", "not an address"} {
		u, err := env.auth.Register(context.Background(), RegisterRequest{
			Name:     text("Alice"),
			Username: text("alice " + email),
			Email:    text(email),
			Password: text("password1"),
		})
		require.NoError(t, err, email)
		require.Equal(t, email, u.Email)
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice", "password1")

	res := env.login(t, "alice", "password1")
	require.NotEmpty(t, res.Token)
	require.Equal(t, u.ID, res.User.ID)
	require.True(t, res.ExpiresAt.After(env.auth.now()))

	got, err := env.auth.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password1")

	_, wrongPass := env.auth.Login(context.Background(), LoginRequest{Username: text("alice"), Password: text("wrongpass")})
	_, noUser := env.auth.Login(context.Background(), LoginRequest{Username: text("nobody"), Password: text("wrongpass")})

	a := requireKind(t, wrongPass, KindUnauthorized)
	b := requireKind(t, noUser, KindUnauthorized)
	require.Equal(t, MsgIncorrectCredentials, a.Message)
	require.Equal(t, a.Message, b.Message)
	require.Nil(t, a.Fields)
	require.Nil(t, b.Fields)
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Login(context.Background(), LoginRequest{Password: text("short")})
	se := requireKind(t, err, KindInvalidInput)
	require.Equal(t, []string{"Username is required."}, se.Fields["username"])
	require.Equal(t, []string{"Password must be at least 8 characters long."}, se.Fields["password"])
}

func TestLogin_UpgradesLegacyBcrypt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "legacy", "password1")

	legacy, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	laravel := "$2y$" + strings.TrimPrefix(string(legacy), "$2a$")
	require.NoError(t, env.store.Users().UpdatePasswordHash(ctx, u.ID, laravel, env.auth.now()))

	env.login(t, "legacy", "password1")

	stored, err := env.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	env.login(t, "legacy", "password1")
}

func TestLogout_RevokesOnlyCurrentToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "password1")

	first := env.login(t, "alice", "password1")
	second := env.login(t, "alice", "password1")

	require.NoError(t, env.auth.Logout(ctx, first.Token))

	_, err := env.auth.Authenticate(ctx, first.Token)
	requireKind(t, err, KindUnauthorized)

	_, err = env.auth.Authenticate(ctx, second.Token)
	require.NoError(t, err)
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Authenticate(context.Background(), "garbage")
	se := requireKind(t, err, KindUnauthorized)
	require.Equal(t, MsgUnauthenticated, se.Message)
}
