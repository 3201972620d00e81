package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/internal/accounts/tokens"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "accounts-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	router *Router
}

func newTestServer(t *testing.T, checks ...ReadinessCheck) *testServer {
	t.Helper()
	return buildTestServer(t, false, nil, checks...)
}

// buildTestServer wires a router over sqlite. wrapAdmin, when set, wraps the
// store the user admin service sees.
func buildTestServer(t *testing.T, exposeInternal bool, wrapAdmin func(store.Store) store.Store, checks ...ReadinessCheck) *testServer {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	issuer := tokens.NewOpaqueIssuer(tokens.NewDBSessions(s), time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var adminStore store.Store = s
	if wrapAdmin != nil {
		adminStore = wrapAdmin(s)
	}

	r := NewRouter("", "test", logger, exposeInternal)
	r.AuthService = service.NewAuthService(s, service.PasswordHasher{}, issuer)
	r.UserAdminService = service.NewUserAdminService(adminStore, service.PasswordHasher{}, issuer)
	for _, c := range checks {
		r.AddReadinessCheck(c.Name, c.Check)
	}
	r.ApplyRoutes()

	return &testServer{router: r}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) register(t *testing.T, username string) {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":     "User " + username,
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (ts *testServer) login(t *testing.T, username string) accountsdk.LoginData {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[accountsdk.LoginResponse](t, rec).Data
}

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":     "Alice",
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Register successfully. You can login now.",
		decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	login := decodeBody[accountsdk.LoginResponse](t, rec)
	require.Equal(t, "Login successfully.", login.Message)
	require.NotEmpty(t, login.Data.Token)
	require.Equal(t, "alice", login.Data.User.Username)
	require.NotContains(t, rec.Body.String(), "password")

	exp, err := login.Data.ExpiresAt()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	rec = ts.do(t, http.MethodGet, "/users", login.Data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/logout", login.Data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Logged out successfully.", decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/users", login.Data.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthenticated.", decodeBody[accountsdk.MessageResponse](t, rec).Message)
}

func TestRegisterInvalid(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "taken")

	rec := ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":     "Someone",
		"username": "taken",
		"email":    "taken@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody[accountsdk.FieldErrorsResponse](t, rec)
	require.Equal(t, "Invalid input.", body.Message)
	require.Equal(t, []string{"Username is already taken."}, body.Errors["username"])
	require.Equal(t, []string{"This email is already registered."}, body.Errors["email"])
	require.Equal(t, []string{"Password must be at least 8 characters long."}, body.Errors["password"])
	require.NotContains(t, body.Errors, "name")
}

func TestRegisterMalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/register", "", `{"username":`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody[accountsdk.FieldErrorsResponse](t, rec)
	require.Equal(t, []string{msgMalformedBody}, body.Errors["body"])
}

func TestRegisterForm(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{
		"name":     {"Form User"},
		"username": {"formuser"},
		"email":    {"form@example.com"},
		"password": {"password123"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ts.login(t, "formuser")
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "bob")

	rec := ts.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "bob",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "The username or password is incorrect.",
		decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "nobody",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "The username or password is incorrect.",
		decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[accountsdk.ValidationResponse](t, rec)
	require.Contains(t, body.Validation, "password")
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t)

	var last *httptest.ResponseRecorder
	for range 10 {
		last = ts.do(t, http.MethodPost, "/login", "", map[string]string{
			"username": "mallory",
			"password": "guess-guess",
		})
		if last.Code == http.StatusTooManyRequests {
			break
		}
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	require.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestUsersRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodGet, "/users/01HZZZZZZZZZZZZZZZZZZZZZZZ"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/x"},
		{http.MethodPatch, "/users/x/password"},
		{http.MethodDelete, "/users/x"},
		{http.MethodPost, "/logout"},
	} {
		rec := ts.do(t, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	}

	rec := ts.do(t, http.MethodGet, "/users", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserAdministration(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "admin")
	token := ts.login(t, "admin").Token

	rec := ts.do(t, http.MethodPost, "/users", token, map[string]string{
		"name":             "Carol Jones",
		"username":         "carol",
		"email":            "carol@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[accountsdk.UserResponse](t, rec)
	require.Equal(t, "User are successfully saved.", created.Message)
	carol := created.Data

	rec = ts.do(t, http.MethodPost, "/users", token, map[string]string{
		"name":             "Carol Again",
		"username":         "carol",
		"email":            "carol2@example.com",
		"password":         "password123",
		"confirm_password": "password124",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	invalid := decodeBody[accountsdk.ValidationResponse](t, rec)
	require.Equal(t, "Invalid Input.", invalid.Message)
	require.Contains(t, invalid.Validation, "username")
	require.Contains(t, invalid.Validation, "confirm_password")

	rec = ts.do(t, http.MethodGet, "/users/"+carol.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shown := decodeBody[accountsdk.UserResponse](t, rec)
	require.Equal(t, "User retrieved successfully.", shown.Message)
	require.Equal(t, carol.ID, shown.Data.ID)

	rec = ts.do(t, http.MethodGet, "/users/not-a-ulid", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "User not found.", decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPatch, "/users/"+carol.ID, token, map[string]string{
		"name":     "Carol Smith",
		"username": "carols",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[accountsdk.UserResponse](t, rec)
	require.Equal(t, "User are successfully updated.", updated.Message)
	require.Equal(t, "carols", updated.Data.Username)
	require.Equal(t, "carol@example.com", updated.Data.Email)

	rec = ts.do(t, http.MethodPut, "/users/"+carol.ID, token, map[string]string{"name": "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	invalid = decodeBody[accountsdk.ValidationResponse](t, rec)
	require.Contains(t, invalid.Validation, "name")
	require.Contains(t, invalid.Validation, "username")

	rec = ts.do(t, http.MethodPatch, "/users/"+carol.ID+"/password", token, map[string]string{
		"password":         "new-password",
		"confirm_password": "new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "User password are successfully updated.",
		decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPatch, "/users/"+carol.ID+"/password", token, map[string]string{
		"password": "new-password",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fieldErrs := decodeBody[accountsdk.FieldErrorsResponse](t, rec)
	require.Equal(t, "Validation failed.", fieldErrs.Message)
	require.Contains(t, fieldErrs.Errors, "confirm_password")

	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "carols",
		"password": "new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDeleteUser(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "admin")
	ts.register(t, "victim")

	admin := ts.login(t, "admin")
	victim := ts.login(t, "victim")

	rec := ts.do(t, http.MethodDelete, "/users/"+admin.User.ID, admin.Token,
		map[string]string{"confirm_password": "password123"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "You cannot delete your own account.",
		decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodDelete, "/users/"+victim.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decodeBody[accountsdk.FieldErrorsResponse](t, rec).Errors, "confirm_password")

	rec = ts.do(t, http.MethodDelete, "/users/"+victim.User.ID, admin.Token,
		map[string]string{"confirm_password": "not-my-password"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "The confirm password does not match.",
		decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodDelete, "/users/"+victim.User.ID+"?confirm_password=password123", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "User are successfully deleted.", decodeBody[accountsdk.MessageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/users/"+victim.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/users", victim.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "deleted user's token must stop working")
}

func TestListUsers(t *testing.T) {
	ts := newTestServer(t)
	for _, u := range []string{"alpha", "bravo", "charlie"} {
		ts.register(t, u)
	}
	token := ts.login(t, "alpha").Token

	rec := ts.do(t, http.MethodGet, "/users?per_page=2&page=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeBody[accountsdk.UserListResponse](t, rec)
	require.Equal(t, "Users retrieved successfully.", list.Message)
	require.Len(t, list.Data, 1)
	require.Equal(t, "charlie", list.Data[0].Username)
	require.Equal(t, accountsdk.Meta{CurrentPage: 2, PerPage: 2, Total: 3, LastPage: 2}, list.Meta)

	rec = ts.do(t, http.MethodGet, "/users?search=BRAV", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[accountsdk.UserListResponse](t, rec)
	require.Len(t, list.Data, 1)
	require.Equal(t, "bravo", list.Data[0].Username)

	rec = ts.do(t, http.MethodGet, "/users?search=zzz", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, string(mustField(t, rec, "data")))

	rec = ts.do(t, http.MethodGet, "/users?per_page=abc&page=0", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	invalid := decodeBody[accountsdk.ValidationResponse](t, rec)
	require.Equal(t, "Invalid input.", invalid.Message)
	require.Contains(t, invalid.Validation, "per_page")
	require.Contains(t, invalid.Validation, "page")
}

func mustField(t *testing.T, rec *httptest.ResponseRecorder, key string) json.RawMessage {
	t.Helper()

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Contains(t, m, key)
	return m[key]
}

func TestHealth(t *testing.T) {
	healthy := ReadinessCheck{Name: "database", Check: func(context.Context) error { return nil }}
	broken := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	ts := newTestServer(t, healthy)

	rec := ts.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	live := decodeBody[accountsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	rec = ts.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]string{"database": "ok"}, decodeBody[accountsdk.HealthResponse](t, rec).Checks)

	ts = newTestServer(t, healthy, broken)
	rec = ts.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	ready := decodeBody[accountsdk.HealthResponse](t, rec)
	require.Equal(t, "degraded", ready.Status)
	require.Equal(t, "ok", ready.Checks["database"])
	require.Equal(t, "error: connection refused", ready.Checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/livez", "", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "accounts_http_requests_total")
}

// brokenTxStore fails every transaction after its writes ran, so they roll
// back.
type brokenTxStore struct {
	store.Store
	err error
}

func (s brokenTxStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return s.err
	})
}

func TestInternalErrors(t *testing.T) {
	diskFull := errors.New("disk I/O error: database or disk is full")
	wrap := func(s store.Store) store.Store { return brokenTxStore{Store: s, err: diskFull} }

	tests := []struct {
		name   string
		expose bool
		want   string
	}{
		{"cause exposed", true, diskFull.Error()},
		{"cause hidden", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := buildTestServer(t, tt.expose, wrap)
			ts.register(t, "admin")
			token := ts.login(t, "admin").Token

			rec := ts.do(t, http.MethodPost, "/users", token, map[string]string{
				"name":             "Carol Jones",
				"username":         "carol",
				"email":            "carol@example.com",
				"password":         "password123",
				"confirm_password": "password123",
			})
			require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

			body := decodeBody[accountsdk.InternalErrorResponse](t, rec)
			require.Equal(t, "Failed to create user.", body.Message)
			require.Equal(t, tt.want, body.Errors)
			if !tt.expose {
				require.NotContains(t, rec.Body.String(), "errors")
			}

			rec = ts.do(t, http.MethodGet, "/users?search=carol", token, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Zero(t, decodeBody[accountsdk.UserListResponse](t, rec).Meta.Total, "create rolled back")
		})
	}
}
