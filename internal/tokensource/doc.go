// Package tokensource acquires and holds the application-only bearer token
// used against the upstream API.
//
// The upstream uses the standard OAuth2 client-credentials grant: the client
// identifier and secret are sent as HTTP Basic credentials and the body is the
// form-encoded grant_type=client_credentials. The returned token carries no
// expiry, so the Manager never refreshes on its own; callers call Acquire again
// once a request made with the current token is refused.
//
// # Usage
//
//	m := tokensource.NewManager(clientID, clientSecret, tokensource.Endpoint)
//	if err := m.Acquire(ctx); err != nil {
//		var authErr *tokensource.AuthError
//		if errors.As(err, &authErr) && authErr.Kind == tokensource.AuthRejected {
//			// bad credentials
//		}
//	}
//	token := m.Current()
//
// # Custom Base Transport
//
// Configure a custom base transport for exchange requests (e.g., for proxies or tests):
//
//	m := tokensource.NewManager(
//		clientID,
//		clientSecret,
//		tokensource.EndpointFor(baseURL),
//		tokensource.WithTransport(customTransport),
//	)
package tokensource
