package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

type usersRepo struct {
	db DBTX
}

const userColumns = `id, name, username, email, password_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, op, column, value string) (domain.User, error) {
	defer store.ObserveQuery(driverName, op)()

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "get_user_by_id", "id", id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "get_user_by_username", "username", username)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "get_user_by_email", "email", email)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	defer store.ObserveQuery(driverName, "create_user")()

	query := `
		INSERT INTO users (id, name, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	defer store.ObserveQuery(driverName, "update_user")()

	query := `
		UPDATE users
		SET name = $1, username = $2, email = $3, password_hash = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		u.Name, u.Username, u.Email, u.PasswordHash, u.UpdatedAt.UTC(), u.ID)
	if err != nil {
		return mapConstraint(err)
	}
	return affected(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	defer store.ObserveQuery(driverName, "update_password_hash")()

	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, hash, at.UTC(), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	defer store.ObserveQuery(driverName, "delete_user")()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

const searchClause = `
	WHERE $1 = ''
	   OR name ILIKE '%' || $1 || '%' ESCAPE '\'
	   OR username ILIKE '%' || $1 || '%' ESCAPE '\'
	   OR email ILIKE '%' || $1 || '%' ESCAPE '\'
`

func (r *usersRepo) ListUsers(ctx context.Context, q store.ListQuery) ([]domain.User, int64, error) {
	defer store.ObserveQuery(driverName, "list_users")()

	search := store.EscapeLike(q.Search)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+searchClause, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	if total == 0 || int64(q.Offset) >= total {
		return []domain.User{}, total, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+searchClause+`ORDER BY id LIMIT $2 OFFSET $3`,
		search, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return users, total, nil
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return !exists, nil
}
