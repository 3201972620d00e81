package domain

import "time"

type User struct {
	ID           string // ULID
	Name         string
	Username     string // unique
	Email        string // unique
	PasswordHash string // argon2id PHC, or bcrypt for imported accounts
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
