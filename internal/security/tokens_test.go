package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenCodec_EncodeDecodeRoundTrip(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	now := time.Now().UTC()

	token, jti, exp, err := c.Encode("u1", "u1@example.com", TokenTypeAccess, now, 15*time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token or jti empty")
	}
	wantExp := now.Truncate(time.Second).Add(15 * time.Minute)
	if !exp.Equal(wantExp) {
		t.Errorf("expiry: got %v, want %v", exp, wantExp)
	}

	claims, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" || claims.TokenType != TokenTypeAccess {
		t.Errorf("claims: %+v", claims)
	}
	if claims.ID != jti {
		t.Errorf("jti: got %q, want %q", claims.ID, jti)
	}
	if !claims.ExpiresAt.Time.Equal(wantExp) {
		t.Errorf("exp claim: got %v, want %v", claims.ExpiresAt.Time, wantExp)
	}
}

func TestTokenCodec_RefreshTokenOmitsEmail(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}

	token, _, _, err := c.Encode("u1", "u1@example.com", TokenTypeRefresh, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	claims, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Email != "" {
		t.Errorf("refresh token carried email %q", claims.Email)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Errorf("token type: %q", claims.TokenType)
	}
}

func TestTokenCodec_DistinctJTIs(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	now := time.Now()

	_, jti1, _, err := c.Encode("u1", "", TokenTypeAccess, now, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, jti2, _, err := c.Encode("u1", "", TokenTypeRefresh, now, time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if jti1 == jti2 {
		t.Error("two tokens issued in the same instant share a jti")
	}
}

func TestTokenCodec_DecodeExpired(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}

	// Issued two hours ago with a one-hour lifetime; no leeway applies.
	token, _, _, err := c.Encode("u1", "", TokenTypeAccess, time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("want ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodec_DecodeMalformed(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := c.Decode(token); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("%q: want ErrTokenMalformed, got %v", token, err)
		}
	}
}

func TestTokenCodec_RejectsForeignSignature(t *testing.T) {
	c1, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	otherKeys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	c2 := NewTokenCodec(otherKeys)

	token, _, _, err := c2.Encode("u1", "", TokenTypeAccess, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := c1.Decode(token); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("foreign signature: want ErrTokenMalformed, got %v", err)
	}
}
