package services

import (
	"errors"
	"fmt"

	"github.com/steve-kings/project-management-system/models"
	"github.com/steve-kings/project-management-system/repositories"
)

// Error kinds. Handlers map each kind to an HTTP status.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	// ErrDelivery marks an expected outbound failure whose message is shown to the caller.
	ErrDelivery = errors.New("delivery failed")
)

// Error carries a kind and a message that is safe to return to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// fromStore translates repository and model errors; anything unknown is
// returned wrapped so it surfaces as an internal error.
func fromStore(err error, entity string) error {
	var fe *models.FieldError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return newError(ErrNotFound, "%s not found", entity)
	case errors.Is(err, repositories.ErrDuplicate):
		return newError(ErrConflict, "%s already exists", entity)
	case errors.As(err, &fe):
		return newError(ErrValidation, "%s", fe.Error())
	}
	return fmt.Errorf("%s store: %w", entity, err)
}

func validationError(err error) error {
	return newError(ErrValidation, "%s", err.Error())
}
