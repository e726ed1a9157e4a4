// Package auth resolves a verified caller identity for each request and
// exposes it through the request context. Tokens are trusted only for the
// subject and email; role and hospital membership always come from the users
// table so a stale or tampered claim can never widen access.
package auth

import "context"

// Role is the authorization role of a user within their hospital.
type Role string

const (
	RoleNurse       Role = "nurse"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// Identity is the resolved caller for a request. HospitalID is the tenant
// boundary every query is scoped to.
type Identity struct {
	UserID     string
	Email      string
	Role       Role
	HospitalID string
	// Agent is true when the caller authenticated with the service API key
	// rather than a user token.
	Agent bool
}

// IsZero reports whether no identity was resolved for the request.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type identityKey struct{}

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// FromContext returns the resolved identity, or the zero Identity when the
// request is unauthenticated.
func FromContext(ctx context.Context) Identity {
	ident, _ := ctx.Value(identityKey{}).(Identity)
	return ident
}

// Profile is a user row as the resolver returns it.
type Profile struct {
	UserID     string
	Email      string
	Role       Role
	HospitalID string
}

// ProfileResolver looks up the account backing a token subject or the agent
// service account. Implemented by the staff repository against the privileged
// pool, since it runs before any tenant is known.
type ProfileResolver interface {
	// BySubject resolves a user by identity-provider subject, falling back to
	// email for accounts provisioned before their first login.
	BySubject(ctx context.Context, subject, email string) (*Profile, error)
	// ServiceAccount resolves the agent's service-account user.
	ServiceAccount(ctx context.Context) (*Profile, error)
}
