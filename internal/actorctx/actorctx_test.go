package actorctx

import (
	"context"
	"testing"

	"github.com/geocoder89/mural/internal/auth"
)

func TestIdentityRoundTrip(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no identity")
	}

	want := auth.Identity{UserID: 5, Username: "alice"}
	got, ok := IdentityFrom(WithIdentity(context.Background(), want))
	if !ok || got != want {
		t.Fatalf("got %+v %v, want %+v", got, ok, want)
	}

	if _, ok := IdentityFrom(WithIdentity(context.Background(), auth.Identity{})); ok {
		t.Fatalf("zero identity should not count")
	}
}
