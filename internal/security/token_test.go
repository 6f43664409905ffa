package security

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenIsURLSafeAndUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 64)
	for index := 0; index < 64; index++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken returned error: %v", err)
		}
		decoded, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token %q is not raw url base64: %v", token, err)
		}
		if len(decoded) != tokenBytes {
			t.Fatalf("decoded token len = %d, want %d", len(decoded), tokenBytes)
		}
		if _, exists := seen[token]; exists {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}

func TestTokenDigestIsStableAndHidesToken(t *testing.T) {
	t.Parallel()

	first := TokenDigest("abc")
	second := TokenDigest("  abc  ")
	if first == "" || first != second {
		t.Fatalf("expected stable digest for trimmed input, got %q and %q", first, second)
	}
	if first == "abc" {
		t.Fatal("digest must not equal raw token")
	}
	if TokenDigest(" ") != "" {
		t.Fatal("expected empty digest for blank token")
	}
}

func TestTokenDigestMatches(t *testing.T) {
	t.Parallel()

	digest := TokenDigest("token-1")
	if !TokenDigestMatches(digest, "token-1") {
		t.Fatal("expected digest to match its token")
	}
	if TokenDigestMatches(digest, "token-2") {
		t.Fatal("expected digest mismatch for another token")
	}
	if TokenDigestMatches("", "") {
		t.Fatal("expected blank values never to match")
	}
}
