package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned when PEM content or the key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

const (
	// rsaKeyBits is the modulus size for generated signing keys.
	rsaKeyBits = 2048

	privateKeyFile = "private_key.pem"
	publicKeyFile  = "public_key.pem"
)

// KeyPair holds the process-wide JWT signing key pair. It must be resolved
// once at startup and passed to every component that signs or verifies
// tokens; a pair generated per request would make previously issued tokens
// unverifiable.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Algorithm returns the JWT signing algorithm identifier for the pair.
func (k *KeyPair) Algorithm() string { return "RS256" }

// ResolveKeys resolves the signing key pair in priority order:
// inline PEM from privatePEM/publicPEM (typically env vars), then
// private_key.pem/public_key.pem under keysDir, then a freshly generated
// pair. A generated pair is persisted under keysDir (when set) so tokens
// survive a restart; without a keysDir the pair lives only for the current
// process.
func ResolveKeys(privatePEM, publicPEM, keysDir string) (*KeyPair, error) {
	if strings.TrimSpace(privatePEM) != "" && strings.TrimSpace(publicPEM) != "" {
		return parsePair([]byte(privatePEM), []byte(publicPEM))
	}

	if keysDir != "" {
		privPath := filepath.Join(keysDir, privateKeyFile)
		pubPath := filepath.Join(keysDir, publicKeyFile)
		priv, errPriv := os.ReadFile(privPath)
		pub, errPub := os.ReadFile(pubPath)
		if errPriv == nil && errPub == nil {
			return parsePair(priv, pub)
		}
	}

	keys, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if keysDir != "" {
		if err := keys.WriteFiles(keysDir); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// GenerateKeyPair generates a new 2048-bit RSA key pair (public exponent
// 65537). Not safe to call per request.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// EncodePEM serializes the pair as PKCS8 private / SubjectPublicKeyInfo
// public PEM blocks, suitable for env vars or key files.
func (k *KeyPair) EncodePEM() (privatePEM, publicPEM []byte, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(k.Private)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(k.Public)
	if err != nil {
		return nil, nil, err
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}

// WriteFiles writes the PEM-encoded pair into dir, creating it if needed.
// The private key file is written with 0600 permissions.
func (k *KeyPair) WriteFiles(dir string) error {
	privPEM, pubPEM, err := k.EncodePEM()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privPEM, 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, publicKeyFile), pubPEM, 0o644)
}

func parsePair(privPEM, pubPEM []byte) (*KeyPair, error) {
	priv, err := ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// ParsePrivateKey parses a PEM-encoded RSA private key (PKCS8 or PKCS1).
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrInvalidKey
		}
		return rsaKey, nil
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded RSA public key (PKIX or PKCS1).
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, ErrInvalidKey
		}
		return rsaKey, nil
	default:
		return nil, ErrInvalidKey
	}
}
