package model

import "errors"

var (
	// Credential store errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrStorage            = errors.New("storage failure")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")

	// Access errors
	ErrUnauthorized = errors.New("authorization required")
	ErrForbidden    = errors.New("forbidden")

	ErrInvalidInput = errors.New("invalid input")
)
