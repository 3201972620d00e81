package http

import (
	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
)

func toUser(u domain.User) accountsdk.User {
	return accountsdk.User{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

func toUsers(us []domain.User) []accountsdk.User {
	out := make([]accountsdk.User, len(us))
	for i, u := range us {
		out[i] = toUser(u)
	}
	return out
}
