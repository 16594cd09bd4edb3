// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package secrets

import (
	"context"
	"testing"
)

func TestManagerFor_Noop(t *testing.T) {
	ctx := context.Background()

	sm, err := ManagerFor(ctx, ManagerTypeNoop)
	if err != nil {
		t.Fatal(err)
	}

	got, err := sm.GetSecretValue(ctx, "whatever")
	if err != nil {
		t.Fatal(err)
	}
	if want := "whatever"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
}

func TestManagerFor_Env(t *testing.T) {
	ctx := context.Background()
	t.Setenv("MY_SECRET", "shh")

	sm, err := ManagerFor(ctx, ManagerTypeEnv)
	if err != nil {
		t.Fatal(err)
	}

	got, err := sm.GetSecretValue(ctx, "MY_SECRET")
	if err != nil {
		t.Fatal(err)
	}
	if want := "shh"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}

	if _, err := sm.GetSecretValue(ctx, "MY_MISSING_SECRET"); err == nil {
		t.Error("expected error for unset environment variable")
	}
}

func TestManagerFor_Default(t *testing.T) {
	ctx := context.Background()
	t.Setenv("MY_SECRET", "shh")

	sm, err := ManagerFor(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := sm.(*envManager); !ok {
		t.Errorf("expected default manager type to be env, got %T", sm)
	}
}

func TestManagerFor_Unknown(t *testing.T) {
	ctx := context.Background()

	if _, err := ManagerFor(ctx, "BOGUS"); err == nil {
		t.Error("expected error for unknown manager type")
	}
}
