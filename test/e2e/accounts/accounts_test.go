//go:build e2e

package accounts_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
)

// TestScenario registers a user, exercises login failures, and has a second
// administrator delete the first user.
func TestScenario(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()

	ack, err := client.Register(ctx, accountsdk.RegisterRequest{
		Name:     "Alice",
		Username: "alice",
		Email:    "alice@x.com",
		Password: "password1",
	})
	require.NoError(t, err)
	require.Equal(t, "Register successfully. You can login now.", ack.Message)

	aliceSession, data, err := client.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, aliceSession.Token())
	require.Equal(t, "alice", data.User.Username)

	_, _, err = client.Login(ctx, "alice", "wrongpass")
	wrongPass := requireAPIError(t, err, http.StatusUnauthorized)
	_, _, err = client.Login(ctx, "nobody", "wrongpass")
	noUser := requireAPIError(t, err, http.StatusUnauthorized)
	require.Equal(t, wrongPass.Message, noUser.Message)

	admin := loginAdmin(t, client)
	_, err = admin.CreateUser(ctx, accountsdk.CreateUserRequest{
		Name:            "Bob",
		Username:        "bob",
		Email:           "bob@x.com",
		Password:        "password2",
		ConfirmPassword: "password2",
	})
	require.NoError(t, err)

	bobSession, _, err := client.Login(ctx, "bob", "password2")
	require.NoError(t, err)

	alice := data.User
	require.NoError(t, bobSession.DeleteUser(ctx, alice.ID, "password2"))

	_, err = bobSession.GetUser(ctx, alice.ID)
	requireAPIError(t, err, http.StatusNotFound)

	err = aliceSession.Logout(ctx)
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestRegisterDuplicate(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()

	_, err := client.Register(ctx, accountsdk.RegisterRequest{
		Name:     "Copycat",
		Username: adminUsername,
		Email:    adminEmail,
		Password: "password123",
	})
	apiErr := requireAPIError(t, err, http.StatusUnprocessableEntity)
	require.True(t, apiErr.IsValidation())
	require.Contains(t, apiErr.Fields, "username")
	require.Contains(t, apiErr.Fields, "email")

	admin := loginAdmin(t, client)
	list, err := admin.ListUsers(ctx, accountsdk.ListUsersParams{Search: adminUsername})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Meta.Total)
}

func TestLogoutIsPerToken(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()

	first := loginAdmin(t, client)
	second := loginAdmin(t, client)

	require.NoError(t, first.Logout(ctx))

	err := first.Logout(ctx)
	requireAPIError(t, err, http.StatusUnauthorized)

	_, err = first.ListUsers(ctx, accountsdk.ListUsersParams{})
	requireAPIError(t, err, http.StatusUnauthorized)

	_, err = second.ListUsers(ctx, accountsdk.ListUsersParams{})
	require.NoError(t, err)
}

func TestListPagination(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()
	admin := loginAdmin(t, client)

	for i := range 6 {
		_, err := admin.CreateUser(ctx, accountsdk.CreateUserRequest{
			Name:            fmt.Sprintf("Member %d", i),
			Username:        fmt.Sprintf("member%d", i),
			Email:           fmt.Sprintf("member%d@x.com", i),
			Password:        "password123",
			ConfirmPassword: "password123",
		})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	page := 1
	for {
		res, err := admin.ListUsers(ctx, accountsdk.ListUsersParams{PerPage: 3, Page: page})
		require.NoError(t, err)
		require.EqualValues(t, 7, res.Meta.Total)
		require.Equal(t, 3, res.Meta.LastPage)

		for _, u := range res.Data {
			require.False(t, seen[u.ID], "user %s listed twice", u.Username)
			seen[u.ID] = true
		}
		if page == res.Meta.LastPage {
			break
		}
		page++
	}
	require.Len(t, seen, 7)

	res, err := admin.ListUsers(ctx, accountsdk.ListUsersParams{Search: "MEMBER"})
	require.NoError(t, err)
	require.EqualValues(t, 6, res.Meta.Total)

	res, err = admin.ListUsers(ctx, accountsdk.ListUsersParams{Search: "no-such-user"})
	require.NoError(t, err)
	require.Empty(t, res.Data)
	require.Zero(t, res.Meta.Total)
	require.Zero(t, res.Meta.LastPage)
}

func TestUpdateKeepsOmittedFields(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()
	admin := loginAdmin(t, client)

	user, err := admin.CreateUser(ctx, accountsdk.CreateUserRequest{
		Name:            "Carol",
		Username:        "carol",
		Email:           "carol@x.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.NoError(t, err)

	updated, err := admin.PatchUser(ctx, user.ID, accountsdk.UpdateUserRequest{
		Name:     "Carol Smith",
		Username: "carols",
	})
	require.NoError(t, err)
	require.Equal(t, "carols", updated.Username)
	require.Equal(t, "carol@x.com", updated.Email)

	_, _, err = client.Login(ctx, "carols", "password123")
	require.NoError(t, err)

	require.NoError(t, admin.UpdatePassword(ctx, user.ID, "new-password", "new-password"))
	_, _, err = client.Login(ctx, "carols", "new-password")
	require.NoError(t, err)
}

func TestDeleteGuards(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()
	admin := loginAdmin(t, client)

	me, err := admin.ListUsers(ctx, accountsdk.ListUsersParams{Search: adminUsername})
	require.NoError(t, err)
	require.Len(t, me.Data, 1)

	err = admin.DeleteUser(ctx, me.Data[0].ID, adminPassword)
	apiErr := requireAPIError(t, err, http.StatusForbidden)
	require.Equal(t, "You cannot delete your own account.", apiErr.Message)

	target, err := admin.CreateUser(ctx, accountsdk.CreateUserRequest{
		Name:            "Dave",
		Username:        "dave",
		Email:           "dave@x.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.NoError(t, err)

	err = admin.DeleteUser(ctx, target.ID, "password123")
	apiErr = requireAPIError(t, err, http.StatusForbidden)
	require.Equal(t, "The confirm password does not match.", apiErr.Message)

	_, err = admin.GetUser(ctx, target.ID)
	require.NoError(t, err)
}

func TestJWTTokens(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, map[string]string{
		"TOKEN_FORMAT":             "jwt",
		"TOKEN_EXPIRATION_MINUTES": "5",
	}))
	ctx := t.Context()

	session, data, err := client.Login(ctx, adminUsername, adminPassword)
	require.NoError(t, err)
	require.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+$`, session.Token())

	exp, err := data.ExpiresAt()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(5*time.Minute), exp, time.Minute)

	require.NoError(t, session.Logout(ctx))
	_, err = session.ListUsers(ctx, accountsdk.ListUsersParams{})
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestHealth(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	ctx := t.Context()

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "e2e", live.Version)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks["database"])
}

func TestJWKSOnlyForJWT(t *testing.T) {
	client := accountsdk.NewSDKClient(setupAccountsContainer(t, map[string]string{"TOKEN_FORMAT": "jwt"}))
	ctx := t.Context()

	jwks, err := client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)

	opaque := accountsdk.NewSDKClient(setupAccountsContainer(t, nil))
	_, err = opaque.GetJWKS(ctx)
	requireAPIError(t, err, http.StatusNotFound)
}
