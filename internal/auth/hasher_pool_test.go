package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// These tests pin the worker bound by occupying semaphore slots
// directly; a latency-based check would be flaky on small machines.

func TestArgon2HasherAdmitsUpToWorkerBound(t *testing.T) {
	hasher := NewArgon2Hasher(2)
	ctx := context.Background()

	encoded, err := hasher.Hash(ctx, "bigmeow123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	// Hold one of the two slots; a derivation must still be admitted
	// on the remaining one.
	if !hasher.sem.TryAcquire(1) {
		t.Fatal("expected a free worker slot")
	}
	defer hasher.sem.Release(1)

	ok, err := hasher.Verify(ctx, encoded, "bigmeow123")
	if err != nil {
		t.Fatalf("verify with one slot held: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify")
	}
}

func TestArgon2HasherBlocksPastWorkerBound(t *testing.T) {
	hasher := NewArgon2Hasher(1)
	ctx := context.Background()

	encoded, err := hasher.Hash(ctx, "bigmeow123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	// Occupy the only slot: both Hash and Verify must wait for it
	// rather than running unbounded.
	if !hasher.sem.TryAcquire(1) {
		t.Fatal("expected the single worker slot to be free")
	}
	defer hasher.sem.Release(1)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := hasher.Hash(waitCtx, "meow12345"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected hash to wait on the pool, got %v", err)
	}

	waitCtx, cancel = context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := hasher.Verify(waitCtx, encoded, "bigmeow123"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected verify to wait on the pool, got %v", err)
	}
}
