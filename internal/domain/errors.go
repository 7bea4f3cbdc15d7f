package domain

import "errors"

// Error kinds shared by every layer. Wrap with %w and match with errors.Is.
var (
	// ErrInvalidInput indicates empty or malformed fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyExists indicates a registration conflict
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized covers both unknown users and wrong passwords at login
	ErrUnauthorized = errors.New("invalid username or password")

	// ErrNotFound is returned by stores when a lookup has no result
	ErrNotFound = errors.New("not found")

	// ErrInvalidSignature indicates a token whose signature does not verify
	ErrInvalidSignature = errors.New("token signature invalid")

	// ErrTokenExpired indicates a token checked at or after its expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed indicates a token that cannot be decoded
	ErrTokenMalformed = errors.New("token malformed")

	// ErrStoreUnavailable indicates the credential store could not be reached
	ErrStoreUnavailable = errors.New("store unavailable")
)
