// Package service provides business logic for the application.
package service

import (
	"fmt"
	"regexp"
	"strings"
)

// Field constraints.
const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
	minTitleLen    = 3
	maxTitleLen    = 100
	maxDescLen     = 500
)

// emailRegex is a form check, not RFC 5322 enforcement. The unique
// constraint and delivery failures catch the rest.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level input failures. It is returned
// before any state change is attempted.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add appends a field error.
func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// errOrNil returns the error if any field failed, nil otherwise.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// validUsername checks the 3-50 char non-blank constraint.
func validUsername(username string) string {
	if strings.TrimSpace(username) == "" {
		return "username is required"
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return fmt.Sprintf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	return ""
}

// validEmail checks the email is non-blank and well-formed.
func validEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return "email is required"
	}
	if !emailRegex.MatchString(email) {
		return "email must be valid"
	}
	return ""
}

// validPassword checks the minimum length constraint.
func validPassword(password string) string {
	if strings.TrimSpace(password) == "" {
		return "password is required"
	}
	if len(password) < minPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	return ""
}

// validTitle checks the 3-100 char required constraint.
func validTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "title is required"
	}
	if len(title) < minTitleLen || len(title) > maxTitleLen {
		return fmt.Sprintf("title must be %d-%d characters", minTitleLen, maxTitleLen)
	}
	return ""
}

// validDescription checks the optional 500 char cap.
func validDescription(desc string) string {
	if len(desc) > maxDescLen {
		return fmt.Sprintf("description can be up to %d characters", maxDescLen)
	}
	return ""
}
