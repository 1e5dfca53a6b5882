package leads

import "errors"

var (
	// ErrLeadNotFound indicates the lead does not exist.
	ErrLeadNotFound = errors.New("leads: lead not found")
	// ErrMissingIdentity indicates the channel or user id was empty.
	ErrMissingIdentity = errors.New("leads: channel and user id required")
)
