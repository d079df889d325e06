// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/chainsim/foundation/blockchain/errs"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// statuses maps the ledger and registry error kinds to HTTP status codes.
var statuses = []struct {
	err    error
	status int
}{
	{errs.ErrChainNotFound, http.StatusNotFound},
	{errs.ErrNodeNotFound, http.StatusNotFound},
	{errs.ErrDuplicateChain, http.StatusConflict},
	{errs.ErrDuplicateNode, http.StatusConflict},
	{errs.ErrStaleSeal, http.StatusConflict},
	{errs.ErrInvalidTransition, http.StatusConflict},
	{errs.ErrInvalidArgument, http.StatusBadRequest},
	{errs.ErrInvalidBlock, http.StatusUnprocessableEntity},
	{errs.ErrConsensus, http.StatusUnprocessableEntity},
}

// Classify wraps a core error as a trusted error carrying the matching HTTP
// status. Errors that match no known kind are returned as they are.
func Classify(err error) error {
	if err == nil || IsTrusted(err) {
		return err
	}

	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return NewTrusted(err, s.status)
		}
	}

	return err
}
