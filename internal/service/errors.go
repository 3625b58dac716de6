package service

import "errors"

var (
	ErrInvalidInput       = errors.New("missing or invalid fields")
	ErrConflict           = errors.New("email already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("authentication token required")
	ErrForbidden          = errors.New("invalid or expired token")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)
