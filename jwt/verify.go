package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// VerifyOptions narrows what [Verify] accepts.
type VerifyOptions struct {
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

// Verify checks an RS256 token against pub and returns its claims.
func Verify(token string, pub *rsa.PublicKey, opts VerifyOptions) (Claims, error) {
	if pub == nil {
		return Claims{}, errors.New("nil public key")
	}

	options := []gjwt.ParserOption{
		gjwt.WithValidMethods([]string{gjwt.SigningMethodRS256.Alg()}),
		gjwt.WithIssuedAt(),
		gjwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		options = append(options, gjwt.WithIssuer(opts.Issuer))
	}
	if opts.Leeway > 0 {
		options = append(options, gjwt.WithLeeway(opts.Leeway))
	}
	if opts.Now != nil {
		options = append(options, gjwt.WithTimeFunc(opts.Now))
	}

	parser := gjwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(token, &gjwt.RegisteredClaims{}, func(t *gjwt.Token) (interface{}, error) {
		if t.Method.Alg() != gjwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if typ, _ := t.Header["typ"].(string); typ != RS256Header.Typ {
			return nil, fmt.Errorf("unexpected token type: %q", typ)
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, err
	}

	rc, ok := parsed.Claims.(*gjwt.RegisteredClaims)
	if !ok || !parsed.Valid || rc.IssuedAt == nil || rc.ExpiresAt == nil {
		return Claims{}, gjwt.ErrTokenInvalidClaims
	}

	return Claims{
		IssuedAt:  rc.IssuedAt.Unix(),
		ExpiresAt: rc.ExpiresAt.Unix(),
		Issuer:    rc.Issuer,
	}, nil
}
