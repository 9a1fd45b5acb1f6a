package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if keys.Private.N.BitLen() != 2048 {
		t.Errorf("modulus bits: %d", keys.Private.N.BitLen())
	}
	if keys.Private.E != 65537 {
		t.Errorf("public exponent: %d", keys.Private.E)
	}

	privPEM, pubPEM, err := keys.EncodePEM()
	if err != nil {
		t.Fatalf("EncodePEM: %v", err)
	}
	priv, err := ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if priv.N.Cmp(keys.Private.N) != 0 || pub.N.Cmp(keys.Public.N) != 0 {
		t.Error("round-tripped keys do not match")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ParsePrivateKey([]byte("not a pem")); err == nil {
		t.Error("ParsePrivateKey accepted garbage")
	}
	if _, err := ParsePublicKey([]byte("not a pem")); err == nil {
		t.Error("ParsePublicKey accepted garbage")
	}
}

func TestResolveKeysFromEnvPEM(t *testing.T) {
	keys, err := NewTestKeyPair()
	if err != nil {
		t.Fatalf("NewTestKeyPair: %v", err)
	}
	privPEM, pubPEM, err := keys.EncodePEM()
	if err != nil {
		t.Fatalf("EncodePEM: %v", err)
	}

	resolved, err := ResolveKeys(string(privPEM), string(pubPEM), "")
	if err != nil {
		t.Fatalf("ResolveKeys: %v", err)
	}
	if resolved.Private.N.Cmp(keys.Private.N) != 0 {
		t.Error("resolved key does not match supplied PEM")
	}
}

func TestResolveKeysFromFilesAndGeneration(t *testing.T) {
	dir := t.TempDir()

	// Nothing on disk: a fresh pair is generated and persisted.
	first, err := ResolveKeys("", "", dir)
	if err != nil {
		t.Fatalf("ResolveKeys (generate): %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "private_key.pem")); err != nil {
		t.Fatalf("private key file: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "private_key.pem"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("private key permissions: %o", perm)
	}

	// Second resolve loads the same pair from the files.
	second, err := ResolveKeys("", "", dir)
	if err != nil {
		t.Fatalf("ResolveKeys (load): %v", err)
	}
	if first.Private.N.Cmp(second.Private.N) != 0 {
		t.Error("second resolve generated a different key")
	}
}
