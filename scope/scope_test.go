package scope_test

import (
	"context"
	"testing"

	"github.com/hookline/hookline/scope"
)

func TestWithAndFrom(t *testing.T) {
	ctx := scope.With(context.Background(), scope.Scope{OwnerID: "acct-1", InboxID: "inbox-1"})

	sc := scope.From(ctx)
	if sc.OwnerID != "acct-1" {
		t.Fatalf("OwnerID = %q", sc.OwnerID)
	}
	if sc.InboxID != "inbox-1" {
		t.Fatalf("InboxID = %q", sc.InboxID)
	}
}

func TestFromEmptyContext(t *testing.T) {
	sc := scope.From(context.Background())
	if sc.OwnerID != "" || sc.InboxID != "" {
		t.Fatalf("expected zero scope, got %+v", sc)
	}
}

func TestWithOverwrites(t *testing.T) {
	ctx := scope.With(context.Background(), scope.Scope{OwnerID: "acct-1"})
	ctx = scope.With(ctx, scope.Scope{OwnerID: "acct-2"})

	if sc := scope.From(ctx); sc.OwnerID != "acct-2" {
		t.Fatalf("OwnerID = %q", sc.OwnerID)
	}
}
