package auth_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/FasterSpeeding/PTF/internal/auth"
	_ "github.com/FasterSpeeding/PTF/testing"
)

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestDecodeBasic(t *testing.T) {
	credentials, err := auth.DecodeBasic(basicHeader("lovely", "hunter22"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if credentials.Username != "lovely" {
		t.Fatalf("expected username lovely, got %q", credentials.Username)
	}
	if credentials.Password != "hunter22" {
		t.Fatalf("expected password hunter22, got %q", credentials.Password)
	}
}

func TestDecodeBasicSchemeCaseInsensitive(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("name:word1234"))
	for _, scheme := range []string{"basic ", "BASIC ", "bAsIc "} {
		credentials, err := auth.DecodeBasic(scheme + payload)
		if err != nil {
			t.Fatalf("scheme %q: %v", scheme, err)
		}
		if credentials.Username != "name" {
			t.Fatalf("scheme %q: got username %q", scheme, credentials.Username)
		}
	}
}

func TestDecodeBasicPasswordKeepsColons(t *testing.T) {
	credentials, err := auth.DecodeBasic(basicHeader("name", "pa:ss:word"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if credentials.Password != "pa:ss:word" {
		t.Fatalf("expected colons preserved, got %q", credentials.Password)
	}
}

func TestDecodeBasicErrors(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"empty header", "", auth.ErrHeaderMissing},
		{"wrong scheme", "Bearer abc123", auth.ErrNotBasic},
		{"scheme only", "Basic ", auth.ErrHeaderMalformed},
		{"not base64", "Basic $$$$", auth.ErrHeaderMalformed},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")), auth.ErrHeaderMalformed},
		{"empty username", "Basic " + base64.StdEncoding.EncodeToString([]byte(":password")), auth.ErrHeaderMalformed},
		{"empty password", "Basic " + base64.StdEncoding.EncodeToString([]byte("username:")), auth.ErrHeaderMalformed},
		{"invalid utf8", "Basic " + base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, ':', 'p'}), auth.ErrHeaderMalformed},
		{"too short", "Basi", auth.ErrHeaderMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := auth.DecodeBasic(tc.header); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
