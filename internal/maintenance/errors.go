package maintenance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/storage"
)

// Error kinds. Every error returned by Service matches exactly one of these
// under errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

// Error is a classified service failure. Message is safe to show to API
// clients; Cause, when set, is for logs only.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func notFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func internal(cause error, format string, args ...interface{}) error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// invalidModel reports a joined model validation error as one message.
func invalidModel(err error) error {
	return &Error{Kind: ErrValidation, Message: strings.ReplaceAll(err.Error(), "\n", "; ")}
}

// fromStore classifies a record store error about the named entity.
func fromStore(err error, entity string) error {
	var classified *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &classified):
		return err
	case errors.Is(err, db.ErrNotFound):
		return notFound("%s not found", entity)
	case errors.Is(err, db.ErrInvalidID):
		return invalid("invalid %s id", entity)
	case errors.Is(err, db.ErrDuplicateKey):
		return invalid("%s already exists", entity)
	case errors.Is(err, db.ErrAlreadyMember):
		return conflict("user is already a member of this team")
	default:
		return internal(err, "%s store failure", entity)
	}
}

func fromBlob(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return notFound("attachment content not found")
	case errors.Is(err, storage.ErrInvalidKey):
		return invalid("invalid attachment key")
	default:
		return internal(err, "attachment storage failure")
	}
}

// PublicMessage returns the message an API client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if errors.Is(e.Kind, ErrInternal) {
			return "internal server error"
		}
		return e.Message
	}
	return "internal server error"
}
