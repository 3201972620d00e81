package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/tokens"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// UserAdminService is user administration on behalf of an authenticated
// actor. Every method takes the actor's user ID explicitly.
type UserAdminService struct {
	Store  store.Store
	Hasher CredentialHasher
	// Tokens, when set, has a deleted user's sessions revoked. Sessions in
	// the database go with the user row regardless.
	Tokens tokens.Issuer
	Now    func() time.Time
}

func NewUserAdminService(s store.Store, hasher CredentialHasher, issuer tokens.Issuer) *UserAdminService {
	return &UserAdminService{Store: s, Hasher: hasher, Tokens: issuer, Now: time.Now}
}

func (s *UserAdminService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func requireActor(actorID string) error {
	if actorID == "" {
		return unauthorized(MsgUnauthenticated)
	}
	return nil
}

// ListResult is one page of users.
type ListResult struct {
	Users    []domain.User
	Page     int
	PerPage  int
	Total    int64
	LastPage int
}

// List returns the requested page, ordered by id so pages never overlap.
func (s *UserAdminService) List(ctx context.Context, actorID string, req ListUsersRequest) (ListResult, error) {
	if err := requireActor(actorID); err != nil {
		return ListResult{}, err
	}
	if err := req.Validate(); err != nil {
		return ListResult{}, fromValidation(err, MsgInvalidInput, MsgFailedToListUsers)
	}

	perPage := intOr(req.PerPage, DefaultPerPage)
	page := intOr(req.Page, 1)

	users, total, err := s.Store.Users().ListUsers(ctx, store.ListQuery{
		Search: req.Search.Trimmed().String(),
		Limit:  perPage,
		Offset: pageOffset(page, perPage),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list users", slog.Any("error", err))
		return ListResult{}, internal(MsgFailedToListUsers, err)
	}

	return ListResult{
		Users:    users,
		Page:     page,
		PerPage:  perPage,
		Total:    total,
		LastPage: lastPage(total, perPage),
	}, nil
}

// pageOffset is (page-1)*perPage, saturating at math.MaxInt so a huge page
// number lands past the end instead of wrapping back to the first rows.
func pageOffset(page, perPage int) int {
	if page <= 1 || perPage <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}

// lastPage is ceil(total/perPage); zero when there are no rows.
func lastPage(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func (s *UserAdminService) Show(ctx context.Context, actorID, id string) (domain.User, error) {
	if err := requireActor(actorID); err != nil {
		return domain.User{}, err
	}
	return findUser(ctx, s.Store.Users(), id)
}

func (s *UserAdminService) Create(ctx context.Context, actorID string, req CreateUserRequest) (domain.User, error) {
	if err := requireActor(actorID); err != nil {
		return domain.User{}, err
	}
	l := slogx.FromContext(ctx)

	req.normalise()
	if err := req.validate(usersTaken(ctx, s.Store.Users(), "")); err != nil {
		return domain.User{}, fromValidation(err, MsgInvalidInputCreate, MsgFailedToCreateUser)
	}

	hash, err := s.Hasher.Hash(req.Password.String())
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, internal(MsgFailedToCreateUser, err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         req.Name.String(),
		Username:     req.Username.String(),
		Email:        req.Email.String(),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if err != nil {
		if ie, ok := conflictAsInvalid(err, MsgInvalidInputCreate, createMessages); ok {
			return domain.User{}, ie
		}
		l.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, internal(MsgFailedToCreateUser, err)
	}

	l.Info("user created", slog.String("user_id", user.ID))
	return user, nil
}

func (s *UserAdminService) Update(ctx context.Context, actorID, id string, req UpdateUserRequest) (domain.User, error) {
	if err := requireActor(actorID); err != nil {
		return domain.User{}, err
	}
	l := slogx.FromContext(ctx)

	user, err := findUser(ctx, s.Store.Users(), id)
	if err != nil {
		return domain.User{}, err
	}

	req.normalise()
	if err := req.validate(usersTaken(ctx, s.Store.Users(), user.ID)); err != nil {
		return domain.User{}, fromValidation(err, MsgInvalidInput, MsgFailedToUpdateUser)
	}

	user.Name = req.Name.String()
	user.Username = req.Username.String()
	if req.Email.Filled() {
		user.Email = req.Email.String()
	}
	if req.Password.Filled() {
		hash, err := s.Hasher.Hash(req.Password.String())
		if err != nil {
			l.Error("failed to hash password", slog.Any("error", err))
			return domain.User{}, internal(MsgFailedToUpdateUser, err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdateUser(ctx, user)
	})
	if err != nil {
		if ie, ok := conflictAsInvalid(err, MsgInvalidInput, updateMessages); ok {
			return domain.User{}, ie
		}
		l.Error("failed to update user", slog.String("user_id", user.ID), slog.Any("error", err))
		return domain.User{}, internal(MsgFailedToUpdateUser, err)
	}

	l.Info("user updated", slog.String("user_id", user.ID))
	return user, nil
}

func (s *UserAdminService) UpdatePassword(ctx context.Context, actorID, id string, req UpdatePasswordRequest) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	l := slogx.FromContext(ctx)

	user, err := findUser(ctx, s.Store.Users(), id)
	if err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return fromValidation(err, MsgValidationFailed, MsgFailedToUpdatePass)
	}

	hash, err := s.Hasher.Hash(req.Password.String())
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return internal(MsgFailedToUpdatePass, err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdatePasswordHash(ctx, user.ID, hash, s.now())
	})
	if err != nil {
		l.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return internal(MsgFailedToUpdatePass, err)
	}

	l.Info("user password updated", slog.String("user_id", user.ID))
	return nil
}

// Destroy deletes the target after the actor re-enters their own password.
// Actors cannot delete themselves.
func (s *UserAdminService) Destroy(ctx context.Context, actorID, id string, req DeleteUserRequest) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	l := slogx.FromContext(ctx)

	target, err := findUser(ctx, s.Store.Users(), id)
	if err != nil {
		return err
	}

	if target.ID == actorID {
		return forbidden(MsgCannotDeleteSelf)
	}

	if err := req.Validate(); err != nil {
		return fromValidation(err, MsgValidationFailed, MsgFailedToDeleteUser)
	}

	actor, err := findUser(ctx, s.Store.Users(), actorID)
	if KindOf(err) == KindNotFound {
		// The actor was deleted after their token was resolved.
		return unauthorized(MsgUnauthenticated)
	}
	if err != nil {
		return err
	}

	ok, err := s.Hasher.Verify(req.ConfirmPassword.String(), actor.PasswordHash)
	if err != nil {
		l.Warn("actor password hash could not be checked", slog.Any("error", err))
	}
	if !ok {
		l.Info("delete refused", slog.String("user_id", target.ID), slog.String("reason", "confirm_password"))
		return forbidden(MsgConfirmPasswordWrong)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().DeleteUser(ctx, target.ID)
	})
	if err != nil {
		l.Error("failed to delete user", slog.String("user_id", target.ID), slog.Any("error", err))
		return internal(MsgFailedToDeleteUser, err)
	}

	if s.Tokens != nil {
		if err := s.Tokens.RevokeUser(ctx, target.ID); err != nil {
			l.Warn("failed to revoke sessions of deleted user",
				slog.String("user_id", target.ID), slog.Any("error", err))
		}
	}

	l.Info("user deleted", slog.String("user_id", target.ID))
	return nil
}
