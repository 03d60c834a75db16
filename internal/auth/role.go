package auth

import "context"

// Role is the closed set of portal roles. Trainers author programs and
// manage clients, clients run their own workout sessions.
type Role string

const (
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

func (r Role) IsValid() bool {
	return r == RoleTrainer || r == RoleClient
}

// Caller is the authenticated identity attached to each request after the
// auth middleware resolves the session token.
type Caller struct {
	UserID int
	Role   Role
}

func (c Caller) IsTrainer() bool {
	return c.Role == RoleTrainer
}

type callerContextKey struct{}

func SetCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerContextKey{}).(Caller)
	return c, ok
}
