package docstore

import (
	"context"
	"fmt"

	"jobmarket/internal/session"
)

type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Rules decides whether the caller in ctx may perform op on a collection.
type Rules interface {
	Check(ctx context.Context, op Op, collection string) error
}

type RuleFunc func(ctx context.Context, op Op, collection string) error

func (f RuleFunc) Check(ctx context.Context, op Op, collection string) error {
	return f(ctx, op, collection)
}

var AllowAll Rules = RuleFunc(func(context.Context, Op, string) error { return nil })

// RequireAuth denies every operation made without a session principal.
var RequireAuth Rules = RuleFunc(func(ctx context.Context, op Op, collection string) error {
	if session.CurrentUser(ctx) == nil {
		return fmt.Errorf("%s %s: %w: unauthenticated", op, collection, ErrPermissionDenied)
	}
	return nil
})

// PublicRead lets anyone read the named collections and otherwise defers to
// next.
func PublicRead(next Rules, collections ...string) Rules {
	public := make(map[string]bool, len(collections))
	for _, c := range collections {
		public[c] = true
	}
	return RuleFunc(func(ctx context.Context, op Op, collection string) error {
		if op == OpRead && public[collection] {
			return nil
		}
		return next.Check(ctx, op, collection)
	})
}
