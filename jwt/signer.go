package jwt

import "context"

type signatureForm uint8

const (
	formNone signatureForm = iota
	formRaw
	formText
)

// Signature is a signer result in either raw-byte or pre-encoded text form.
//
// The zero value is malformed.
type Signature struct {
	form signatureForm
	raw  []byte
	text string
}

// RawSignature wraps raw signature bytes.
func RawSignature(b []byte) Signature {
	return Signature{form: formRaw, raw: b}
}

// TextSignature wraps a base64 (standard or url alphabet) signature string.
func TextSignature(s string) Signature {
	return Signature{form: formText, text: s}
}

// IsText reports whether the signer returned text.
func (s Signature) IsText() bool {
	return s.form == formText
}

// Encode returns the url-safe signature segment.
func (s Signature) Encode() (string, error) {
	switch s.form {
	case formRaw:
		if len(s.raw) == 0 {
			return "", ErrMalformedSignature
		}
		return EncodeSegment(s.raw), nil
	case formText:
		return NormalizeBase64(s.text)
	default:
		return "", ErrMalformedSignature
	}
}

// Signer is an RSA-SHA256 signing capability supplied by the host.
type Signer interface {
	Sign(ctx context.Context, signingInput string) (Signature, error)
}

// SignerFunc adapts a function to [Signer].
type SignerFunc func(ctx context.Context, signingInput string) (Signature, error)

// Sign calls f.
func (f SignerFunc) Sign(ctx context.Context, signingInput string) (Signature, error) {
	return f(ctx, signingInput)
}

// Candidate is a named signer the assembler may try.
type Candidate struct {
	Name   string
	Signer Signer
}
