package httperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind groups business errors by how callers are expected to react.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindPolicy            Kind = "policy_violation"
	KindUpstreamAuth      Kind = "upstream_auth"
	KindUpstreamTransient Kind = "upstream_transient"
	KindProtocol          Kind = "protocol"
)

type BusinessError struct {
	Code string
	Kind Kind
	Err  error
}

func (e BusinessError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e BusinessError) Unwrap() error {
	return e.Err
}

// Is matches another BusinessError by code, so sentinel values work with errors.Is.
func (e BusinessError) Is(target error) bool {
	t, ok := target.(BusinessError)
	return ok && t.Code == e.Code
}

// MessageKey is the lookup key used by clients for localized text.
func (e BusinessError) MessageKey() string {
	return "errors." + e.Code
}

// ErrBusiness builds a policy violation identified only by its code.
func ErrBusiness(code string) error {
	return BusinessError{Code: code, Kind: KindPolicy}
}

func New(kind Kind, code string) error {
	return BusinessError{Code: code, Kind: kind}
}

func Wrap(kind Kind, code string, err error) error {
	return BusinessError{Code: code, Kind: kind, Err: err}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// KindOf returns the kind of the first BusinessError in the chain, or "".
func KindOf(err error) Kind {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// CodeOf returns the code of the first BusinessError in the chain, or "".
func CodeOf(err error) string {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsUniqueViolation reports a unique index violation from postgres or gorm's translated form.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
