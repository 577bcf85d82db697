package app

import "errors"

var (
	// ErrModelNotConfigured means no usable AI model profile could be
	// resolved for the user: no explicit id, no default, or disabled.
	ErrModelNotConfigured = errors.New("no ai model configured")

	// ErrUsernameTaken is returned by registration for a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials covers unknown username and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrValidation marks rejected request input.
	ErrValidation = errors.New("validation failed")
)
