package jwt

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	gjwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/ssh"
)

// Signer candidate names understood by [NamedSigner].
const (
	SignerRS256     = "rs256"
	SignerPKCS1Text = "pkcs1-text"
)

// LoadPrivateKey parses an RSA private key from PEM text.
//
// Secrets stored on a single line often carry literal "\n" sequences; those are
// expanded first. PKCS#1 and PKCS#8 blocks go through golang-jwt, anything else
// (OpenSSH-wrapped keys) through x/crypto/ssh.
func LoadPrivateKey(pemText string) (*rsa.PrivateKey, error) {
	if strings.Contains(pemText, `\n`) {
		pemText = strings.ReplaceAll(pemText, `\n`, "\n")
	}
	pemText = strings.TrimSpace(pemText)
	if pemText == "" {
		return nil, fmt.Errorf("%w: empty key material", ErrInvalidKey)
	}

	key, err := gjwt.ParseRSAPrivateKeyFromPEM([]byte(pemText))
	if err == nil {
		return key, nil
	}

	raw, sshErr := ssh.ParseRawPrivateKey([]byte(pemText))
	if sshErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch k := raw.(type) {
	case *rsa.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: key type %T is not rsa", ErrInvalidKey, raw)
	}
}

// NewRS256Signer signs with golang-jwt's RS256 method and returns raw bytes.
func NewRS256Signer(key *rsa.PrivateKey) Signer {
	return SignerFunc(func(_ context.Context, signingInput string) (Signature, error) {
		if key == nil {
			return Signature{}, fmt.Errorf("%w: nil key", ErrInvalidKey)
		}
		sig, err := gjwt.SigningMethodRS256.Sign(signingInput, key)
		if err != nil {
			return Signature{}, err
		}
		return RawSignature(sig), nil
	})
}

// NewPKCS1v15TextSigner signs RSASSA-PKCS1-v1_5 over SHA-256 and returns the
// signature as padded standard base64 text.
func NewPKCS1v15TextSigner(key *rsa.PrivateKey) Signer {
	return SignerFunc(func(_ context.Context, signingInput string) (Signature, error) {
		if key == nil {
			return Signature{}, fmt.Errorf("%w: nil key", ErrInvalidKey)
		}
		digest := sha256.Sum256([]byte(signingInput))
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
		if err != nil {
			return Signature{}, err
		}
		return TextSignature(base64.StdEncoding.EncodeToString(sig)), nil
	})
}

// NamedSigner maps a configured signer name onto an adapter over key.
func NamedSigner(name string, key *rsa.PrivateKey) (Candidate, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SignerRS256:
		return Candidate{Name: SignerRS256, Signer: NewRS256Signer(key)}, nil
	case SignerPKCS1Text:
		return Candidate{Name: SignerPKCS1Text, Signer: NewPKCS1v15TextSigner(key)}, nil
	default:
		return Candidate{}, fmt.Errorf("unknown signer %q", name)
	}
}
