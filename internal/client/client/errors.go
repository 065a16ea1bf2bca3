package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// RemoteError carries the error code returned by the server, for example
// "ReceiverNotFound" or "BalanceInsufficient". Errors caused by a missing or
// rejected session also match ErrUnauthorized.
type RemoteError struct {
	Code         string
	Unauthorized bool
}

func (e *RemoteError) Error() string {
	return e.Code
}

func (e *RemoteError) Is(target error) bool {
	return e.Unauthorized && target == ErrUnauthorized
}
