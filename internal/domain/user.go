package domain

import "context"

// User is the authenticated identity a query runs as. Groups are compared
// against database and query tags during authorization.
type User struct {
	ID        int64
	Name      string
	Active    bool
	Superuser bool
	Groups    []string
}

type userKey struct{}

// WithUser stores a User in the context.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext extracts the User from the context. A missing user is a
// valid state: unauthenticated execution paths run without one.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)
	return u, ok
}
