package tokens

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type Kind int

const (
	KindMalformed Kind = iota + 1
	KindExpired
	KindBadSignature
	KindUnsupported
)

var (
	ErrMalformed    = errors.New("token malformed")
	ErrExpired      = errors.New("token expired")
	ErrBadSignature = errors.New("token signature invalid")
	ErrUnsupported  = errors.New("token format unsupported")
)

func (k Kind) sentinel() error {
	switch k {
	case KindExpired:
		return ErrExpired
	case KindBadSignature:
		return ErrBadSignature
	case KindUnsupported:
		return ErrUnsupported
	default:
		return ErrMalformed
	}
}

// TokenError is returned by every claim extraction that fails verification.
// errors.Is matches both the kind sentinel and the underlying jwt error.
type TokenError struct {
	Kind Kind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return e.Kind.sentinel().Error() + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func classify(err error) *TokenError {
	var kind Kind
	switch {
	case errors.Is(err, errUnsupportedAlg):
		kind = KindUnsupported
	case errors.Is(err, jwt.ErrTokenMalformed):
		kind = KindMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = KindExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		kind = KindBadSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		kind = KindUnsupported
	default:
		kind = KindMalformed
	}
	return &TokenError{Kind: kind, Err: err}
}
