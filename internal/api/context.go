package api

import "context"

type ctxKey string

const ctxKeyUser ctxKey = "user"

// User is the authenticated caller.
type User struct {
	ID    string
	Phone string
}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKeyUser).(*User)
	return u
}
