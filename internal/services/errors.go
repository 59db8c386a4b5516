package services

import "errors"

// Business errors shared across services. Handlers map them to HTTP status
// codes with errors.Is.
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrUpstream           = errors.New("completion service unavailable")
)
