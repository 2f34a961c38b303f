package tokensource

import (
	"strings"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the upstream API host.
const DefaultBaseURL = "https://api.twitter.com"

// tokenPath is the client-credentials exchange endpoint relative to the base URL.
const tokenPath = "/oauth2/token"

// Endpoint defines the OAuth2 token endpoint of the upstream API.
var Endpoint = EndpointFor(DefaultBaseURL)

// EndpointFor returns the token endpoint for an alternative upstream base URL.
// Client credentials are always sent as HTTP Basic auth.
func EndpointFor(baseURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		TokenURL:  strings.TrimSuffix(baseURL, "/") + tokenPath,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}
