package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/FasterSpeeding/PTF/internal/auth"
	_ "github.com/FasterSpeeding/PTF/testing"
)

func TestArgon2HasherRoundTrip(t *testing.T) {
	hasher := auth.NewArgon2Hasher(1)
	ctx := context.Background()

	encoded, err := hasher.Hash(ctx, "gay spiderman")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("expected argon2id encoding, got %q", encoded)
	}

	ok, err := hasher.Verify(ctx, encoded, "gay spiderman")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify")
	}

	ok, err = hasher.Verify(ctx, encoded, "gay spiderwoman")
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password to fail")
	}
}

func TestArgon2HasherSaltsDiffer(t *testing.T) {
	hasher := auth.NewArgon2Hasher(1)
	ctx := context.Background()

	first, err := hasher.Hash(ctx, "repeatable")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := hasher.Hash(ctx, "repeatable")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct encodings")
	}
}

func TestArgon2HasherVerifyMalformedStoredHash(t *testing.T) {
	hasher := auth.NewArgon2Hasher(1)
	ctx := context.Background()

	cases := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not phc", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"bad version", "$argon2id$v=12$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$nope$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA"},
		{"bad key", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := hasher.Verify(ctx, tc.encoded, "whatever")
			var hashErr *auth.HashError
			if !errors.As(err, &hashErr) {
				t.Fatalf("expected HashError, got %v", err)
			}
		})
	}
}

func TestArgon2HasherCancelledContext(t *testing.T) {
	hasher := auth.NewArgon2Hasher(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := hasher.Hash(ctx, "password!"); err == nil {
		t.Fatal("expected cancelled context to abort hashing")
	}
}
