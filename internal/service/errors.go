package service

import (
	"errors"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("email or password does not match")
	ErrEmailExists         = errors.New("email already exists")
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or revoked")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrTooManyAttempts     = errors.New("too many login attempts, try again later")
)

type FieldError struct {
	Field string
	Msg   string
}

// ValidationError lists every failing field at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
