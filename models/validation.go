package models

import (
	"fmt"
	"strings"
	"unicode"
)

// FieldError reports a single invalid or missing field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func required(field string) error {
	return &FieldError{Field: field, Reason: "is required"}
}

func invalidEnum(field string, value interface{}) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf("has invalid value %q", fmt.Sprint(value))}
}

// displayName trims name and rejects blank values and control characters.
// Names end up in mail headers and subjects.
func displayName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", required(field)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", &FieldError{Field: field, Reason: "must not contain control characters"}
	}
	return name, nil
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
