package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStoreFromDB(db), mock
}

var userCols = []string{"id", "name", "username", "email", "password_hash", "created_at", "updated_at"}

func TestGetUserByUsername_Found(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("01J00000000000000000000001", "Alice", "alice", "alice@example.com", "hash", now, now))

	u, err := s.Users().GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.Name)
	require.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Users().GetUserByID(context.Background(), "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetUserByEmail_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`WHERE\s+email\s*=\s*\$1`).
		WithArgs("a@b.c").
		WillReturnError(errors.New("db down"))

	_, err := s.Users().GetUserByEmail(context.Background(), "a@b.c")
	require.ErrorContains(t, err, "db error: db down")
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"users_username_unique", "username"},
		{"users_email_unique", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			s, mock := newStoreWithMock(t)

			mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := s.Users().CreateUser(context.Background(), domain.User{ID: "x"})
			require.ErrorIs(t, err, store.ErrAlreadyExists)

			var ce *store.ConflictError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCreateUser_OtherPgError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23502"})

	err := s.Users().CreateUser(context.Background(), domain.User{ID: "x"})
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUpdateUser_NoRows(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)UPDATE\s+users\s+SET\s+name\s*=\s*\$1`).
		WithArgs("Bob", "bob", "bob@example.com", "hash", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Users().UpdateUser(context.Background(), domain.User{
		ID: "missing", Name: "Bob", Username: "bob", Email: "bob@example.com", PasswordHash: "hash",
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1`).
		WithArgs("new-hash", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Users().UpdatePasswordHash(context.Background(), "u1", "new-hash", time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Users().DeleteUser(context.Background(), "u1"))
	require.ErrorIs(t, s.Users().DeleteUser(context.Background(), "u1"), store.ErrNotFound)
}

func TestListUsers_EscapesSearchAndPages(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)SELECT\s+COUNT\(\*\)\s+FROM\s+users.*ILIKE`).
		WithArgs(`50\%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`(?s)FROM\s+users.*ORDER\s+BY\s+id\s+LIMIT\s+\$2\s+OFFSET\s+\$3`).
		WithArgs(`50\%`, 2, 2).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u3", "Carol", "carol", "carol@example.com", "h", now, now))

	users, total, err := s.Users().ListUsers(context.Background(), store.ListQuery{Search: "50%", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	require.Equal(t, "carol", users[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_EmptySkipsSelect(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)`).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	users, total, err := s.Users().ListUsers(context.Background(), store.ListQuery{Limit: 15})
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, users)
	require.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_OffsetPastEndSkipsSelect(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)`).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	users, total, err := s.Users().ListUsers(context.Background(), store.ListQuery{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsEmpty(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	empty, err := s.Users().IsEmpty(context.Background())
	require.NoError(t, err)
	require.False(t, empty)
}

func TestAccessTokens_CreateDefaultsName(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+access_tokens`).
		WithArgs("t1", "u1", domain.DefaultTokenName, "fp", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AccessTokens().CreateAccessToken(context.Background(), domain.AccessToken{
		ID: "t1", UserID: "u1", TokenHash: "fp", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessTokens_GetByHash(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`FROM\s+access_tokens\s+WHERE\s+token_hash\s*=\s*\$1`).
		WithArgs("fp").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "token_hash", "expires_at", "last_used_at", "created_at"}).
			AddRow("t1", "u1", "auth_token", "fp", now.Add(time.Hour), nil, now))

	tok, err := s.AccessTokens().GetAccessTokenByHash(context.Background(), "fp")
	require.NoError(t, err)
	require.Equal(t, "u1", tok.UserID)
	require.Nil(t, tok.LastUsedAt)
	require.Equal(t, now.Add(time.Hour), tok.ExpiresAt)
}

func TestAccessTokens_DeleteByHashMissing(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+access_tokens\s+WHERE\s+token_hash`).
		WithArgs("fp").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AccessTokens().DeleteAccessTokenByHash(context.Background(), "fp")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccessTokens_DeleteExpired(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+access_tokens\s+WHERE\s+expires_at\s*<=\s*\$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.AccessTokens().DeleteExpiredAccessTokens(context.Background(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 4, n)
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+access_tokens\s+WHERE\s+user_id`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.AccessTokens().DeleteUserAccessTokens(context.Background(), "u1")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = s.WithTx(context.Background(), func(tx store.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrations_UsesGoose(t *testing.T) {
	s, _ := newStoreWithMock(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, s.ApplyMigrations())
	require.Equal(t, ".", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("nope")
	}
	require.ErrorContains(t, s.ApplyMigrations(), "goose up: nope")
}
