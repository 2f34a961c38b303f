package feed

import "fmt"

// FetchErrorKind classifies a failed upstream fetch.
type FetchErrorKind int

const (
	// FetchTransport means the request never produced a response.
	FetchTransport FetchErrorKind = iota + 1
	// FetchUnauthorized covers every non-200 response. It is treated as a
	// sign of an expired token regardless of the actual status.
	FetchUnauthorized
	// FetchMalformedResponse means a 200 response did not contain valid JSON.
	FetchMalformedResponse
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTransport:
		return "transport"
	case FetchUnauthorized:
		return "unauthorized"
	case FetchMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// FetchError is returned by Cache.Get when the upstream fetch fails.
type FetchError struct {
	Kind FetchErrorKind
	// Status and Body are set for FetchUnauthorized.
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchUnauthorized {
		return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("fetching feed failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
