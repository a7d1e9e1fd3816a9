package domain

import "errors"

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Chat errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidLanguage  = errors.New("unsupported language")
	ErrInvalidRole      = errors.New("invalid message role")
	ErrInvalidMessage   = errors.New("message must be 1 to 1000 characters")
	ErrGenerationFailed = errors.New("generation failed")
)
