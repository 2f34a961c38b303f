package tokensource

import (
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// AuthErrorKind classifies a failed token exchange.
type AuthErrorKind int

const (
	// AuthTransport means the exchange request never produced a response.
	AuthTransport AuthErrorKind = iota + 1
	// AuthRejected means the authorization endpoint answered with a failure status.
	AuthRejected
	// AuthMalformedResponse means a success response could not be parsed into a token.
	AuthMalformedResponse
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthTransport:
		return "transport"
	case AuthRejected:
		return "rejected"
	case AuthMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// AuthError is returned by Manager.Acquire.
type AuthError struct {
	Kind AuthErrorKind
	// Body holds the response body for AuthRejected.
	Body string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Kind == AuthRejected {
		return fmt.Sprintf("token exchange rejected: %s", e.Body)
	}
	return fmt.Sprintf("token exchange failed (%s): %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// classify maps errors from the oauth2 client onto AuthError kinds.
// oauth2 reports failure statuses, and 2xx bodies carrying an "error" field, as
// *oauth2.RetrieveError. Only the former is a rejection: a 2xx is judged by its
// body alone. Transport errors from http.Client arrive as *url.Error; everything
// else is a body oauth2 could not turn into a token.
func classify(err error) *AuthError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if resp := retrieveErr.Response; resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &AuthError{Kind: AuthMalformedResponse, Err: err}
		}
		return &AuthError{Kind: AuthRejected, Body: string(retrieveErr.Body), Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &AuthError{Kind: AuthTransport, Err: err}
	}

	return &AuthError{Kind: AuthMalformedResponse, Err: err}
}
