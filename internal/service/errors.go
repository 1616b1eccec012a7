package service

import (
	"errors"
	"fmt"
)

// Client-facing authorization failures. Handlers map these to 4xx
// responses with a structured message.
var (
	ErrMissingCredential = errors.New("missing API key")
	ErrInvalidCredential = errors.New("invalid API key")
	ErrRevokedCredential = errors.New("API key has been revoked")
	ErrAccountSuspended  = errors.New("account is suspended")
)

// ErrPoolExhausted means every provider key has hit its ceiling. It is
// surfaced to callers as a generic 502; the detail stays in the logs.
var ErrPoolExhausted = errors.New("provider key pool exhausted")

// QuotaExceededError carries the numbers the caller sees in the 429 body.
type QuotaExceededError struct {
	Limit int
	Used  int64
	Plan  string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: used %d of %d on plan %s", e.Used, e.Limit, e.Plan)
}
