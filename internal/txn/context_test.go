package txn

import (
	"context"
	"errors"
	"testing"
)

func TestDrainRunsEffectsInOrder(t *testing.T) {
	txc := NewContext(nil, nil)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		txc.AfterCommit("step", func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	txc.Drain(context.Background())

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("effects out of order: %v", order)
	}
}

func TestDrainContinuesPastFailure(t *testing.T) {
	txc := NewContext(nil, nil)

	ran := false
	txc.AfterCommit("failing", func(ctx context.Context) error {
		return errors.New("webhook unreachable")
	})
	txc.AfterCommit("panicking", func(ctx context.Context) error {
		panic("short write")
	})
	txc.AfterCommit("last", func(ctx context.Context) error {
		ran = true
		return nil
	})
	txc.Drain(context.Background())

	if !ran {
		t.Fatal("later effect skipped after earlier failure")
	}
}

func TestDrainIsOneShot(t *testing.T) {
	txc := NewContext(nil, nil)

	count := 0
	txc.AfterCommit("once", func(ctx context.Context) error {
		count++
		return nil
	})
	txc.Drain(context.Background())
	txc.Drain(context.Background())

	if count != 1 {
		t.Fatalf("effect ran %d times", count)
	}
}

func TestRunNowRecoversPanic(t *testing.T) {
	// Must not escape; an effect failure is never the caller's failure.
	RunNow(context.Background(), nil, "panicking", func(ctx context.Context) error {
		panic("boom")
	})
}
