package storecall

import (
	"context"
	"errors"
	"testing"
	"time"

	"gym-tenancy/backend/internal/platform/autherr"
)

func TestDo_Success(t *testing.T) {
	v, err := Do(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("fn should run with a deadline")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 {
		t.Errorf("Do = %d, want 42", v)
	}
}

func TestDo_TimeoutBecomesTemporary(t *testing.T) {
	_, err := Do(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, autherr.ErrTemporaryUnavailable) {
		t.Fatalf("Do err = %v, want TemporaryUnavailable", err)
	}
}

func TestDo_NoTimeout(t *testing.T) {
	_, err := Do(context.Background(), 0, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("fn should not get a deadline when timeout is 0")
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestExec_PassesThroughPlainErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Exec(context.Background(), time.Second, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Exec err = %v, want boom", err)
	}
	if errors.Is(err, autherr.ErrTemporaryUnavailable) {
		t.Fatal("plain errors must not be classified as temporary")
	}
}
