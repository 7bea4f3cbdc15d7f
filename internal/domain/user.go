package domain

import "time"

// User is a registered account. PasswordHash always holds a bcrypt digest.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Credential is the request-scoped username/password pair. Never persist it.
type Credential struct {
	Username string
	Password string
}

// Validate reports ErrInvalidInput when either field is empty.
func (c Credential) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrInvalidInput
	}
	return nil
}
