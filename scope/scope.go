// Package scope carries the multi-tenant request scope through context.
//
// Every operation runs on behalf of one owner account, optionally narrowed
// to one inbox. The API layer stores the scope once per request; everything
// downstream reads it back instead of re-parsing headers.
package scope

import "context"

// Scope identifies who a request acts for.
type Scope struct {
	// OwnerID is the owner account. Empty means unscoped.
	OwnerID string

	// InboxID optionally narrows the scope to one inbox.
	InboxID string
}

type ctxKey struct{}

// With returns a context carrying the given scope.
func With(ctx context.Context, sc Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// From returns the scope stored in the context, or the zero Scope when none
// was set.
func From(ctx context.Context) Scope {
	sc, _ := ctx.Value(ctxKey{}).(Scope)
	return sc
}
