// Package credentials obtains and refreshes access tokens for the Tidal API.
// It implements the authorized-user flow: a long-lived refresh token is
// exchanged for short-lived access tokens as needed, behind a mutex-guarded
// cache.
package credentials

import (
	"context"
)

// Provider yields a value for the Authorization request header, refreshing
// whatever backs it as needed. Implementations must be safe for concurrent
// use: one provider is typically shared by many streams.
type Provider interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// Static is a Provider for a fixed bearer token, useful for tests and for
// deployments that manage tokens externally. The empty token yields no
// header at all, for anonymous access.
type Static string

// AuthorizationHeader ...
func (s Static) AuthorizationHeader(context.Context) (string, error) {
	if s == "" {
		return "", nil
	}
	return "Bearer " + string(s), nil
}
