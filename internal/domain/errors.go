package domain

import "errors"

// Error classes shared by the services and the HTTP layer. Callers wrap them
// with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("invalid or expired credentials")
	ErrRevokedToken   = errors.New("token revoked")
	ErrAuthorization  = errors.New("access is denied")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
)
