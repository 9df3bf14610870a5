package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Header is the fixed JOSE header. Field order is the serialization order.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// RS256Header is the only header GitHub accepts for app tokens.
var RS256Header = Header{Alg: "RS256", Typ: "JWT"}

// EncodeSegment returns the unpadded base64url form of b.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// EncodeString encodes the UTF-8 bytes of s.
func EncodeString(s string) string {
	return EncodeSegment([]byte(s))
}

// NormalizeBase64 rewrites a textual signature into unpadded base64url.
//
// Both alphabets are accepted, with or without padding and line wrapping, since host
// signing primitives disagree on which one they return.
func NormalizeBase64(s string) (string, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		case '+':
			return '-'
		case '/':
			return '_'
		}
		return r
	}, s)
	s = strings.TrimRight(s, "=")

	if s == "" || len(s)%4 == 1 {
		return "", ErrMalformedSignature
	}
	for i := 0; i < len(s); i++ {
		if !isURLAlphabet(s[i]) {
			return "", ErrMalformedSignature
		}
	}
	return s, nil
}

// BuildSigningInput returns b64url(header) "." b64url(claims).
func BuildSigningInput(h Header, c Claims) string {
	// Marshal cannot fail for these flat string/int64 structs.
	headerJSON, _ := json.Marshal(h)
	claimsJSON, _ := json.Marshal(c)

	var b strings.Builder
	b.Grow(base64.RawURLEncoding.EncodedLen(len(headerJSON)) + 1 + base64.RawURLEncoding.EncodedLen(len(claimsJSON)))
	b.WriteString(EncodeSegment(headerJSON))
	b.WriteByte('.')
	b.WriteString(EncodeSegment(claimsJSON))
	return b.String()
}

// Assemble appends the url-safe signature segment to signingInput.
func Assemble(signingInput string, sig Signature) (string, error) {
	segment, err := sig.Encode()
	if err != nil {
		return "", err
	}
	return signingInput + "." + segment, nil
}

func isURLAlphabet(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}
