package relic

import "net/http"

// Identity represents an authenticated user or service account.
// Applications implement this interface with their own identity type.
type Identity interface {
	// ID returns the unique identifier for this identity (e.g., user ID, service account ID).
	ID() string

	// HasRole checks if this identity has the given role.
	HasRole(role string) bool
}

// IdentityExtractor pulls the caller identity out of a request, usually
// from an Authorization header or session cookie. Returning an error
// rejects requests to operations that declare roles with 401; public
// operations proceed anonymously. Returning NoIdentity admits the
// caller as anonymous; operations that declare roles will then reject
// with 403.
type IdentityExtractor func(r *http.Request) (Identity, error)

// NoIdentity represents the absence of authentication.
// Used for public endpoints that don't require authentication.
type NoIdentity struct{}

// ID implements Identity.
func (NoIdentity) ID() string {
	return ""
}

// HasRole implements Identity.
func (NoIdentity) HasRole(_ string) bool {
	return false
}

// authorize checks an operation's declared roles against the caller.
// Operations without roles are public. An identity holding any one of
// the declared roles is admitted.
func authorize(op *OperationSpec, identity Identity) error {
	if len(op.Roles) == 0 {
		return nil
	}
	if identity == nil {
		return Unauthorized("authentication required")
	}
	if _, anonymous := identity.(NoIdentity); anonymous {
		return Unauthorized("authentication required")
	}
	for _, role := range op.Roles {
		if identity.HasRole(role) {
			return nil
		}
	}
	return Forbidden("insufficient role")
}
