package domain

import "errors"

var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrForbidden           = errors.New("forbidden")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment provider rejected the request")
	ErrDuplicateEvent      = errors.New("duplicate payment event")
	ErrConcurrentUpdate    = errors.New("payment was modified concurrently")
)
