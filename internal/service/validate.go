package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/auth_service/internal/models"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit in bytes
	maxTenantName  = 100
	maxAddress     = 255
)

type validator struct {
	fields []FieldError
}

func (v *validator) add(field, msg string) {
	v.fields = append(v.fields, FieldError{Field: field, Msg: msg})
}

func (v *validator) required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, msg)
	}
}

func (v *validator) maxLen(field, value string, n int, msg string) {
	if utf8.RuneCountInString(value) > n {
		v.add(field, msg)
	}
}

func (v *validator) email(value string) {
	if value == "" {
		v.add("email", "Email is required!")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.add("email", "It must be a valid email")
	}
}

func (v *validator) password(value string) {
	if value == "" {
		v.add("password", "Password is required!")
		return
	}
	if len(value) < minPasswordLen {
		v.add("password", "Password length should be at least 8 chars!")
		return
	}
	if len(value) > maxPasswordLen {
		v.add("password", "Password must be at most 72 bytes long!")
	}
}

func (v *validator) role(value string) {
	if !models.IsValidRole(value) {
		v.add("role", "Role must be one of customer, manager, admin")
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
