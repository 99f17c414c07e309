package workflow

import "errors"

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user is not active")
	ErrNotAuthorized   = errors.New("user not authorized to approve this request")
	ErrNotPending      = errors.New("request not in pending status")
	ErrConcurrentWrite = errors.New("request was modified concurrently")
	ErrUnknownRole     = errors.New("unknown role")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidDecision = errors.New("invalid decision")
)
