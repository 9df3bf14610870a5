package jwt

import (
	"errors"
	"strings"
)

var (
	// ErrSigningUnavailable means no candidate produced a usable signature.
	ErrSigningUnavailable = errors.New("rs256 signer unavailable")
	// ErrSigningFailed wraps an error raised by a located signer.
	ErrSigningFailed = errors.New("signing failed")
	// ErrMalformedSignature means a signer returned a value that cannot become base64url.
	ErrMalformedSignature = errors.New("malformed signature result")
	// ErrInvalidAppID rejects issuers that are not a decimal app id.
	ErrInvalidAppID = errors.New("invalid app id")
	// ErrInvalidWindow rejects iat/exp pairs GitHub would refuse.
	ErrInvalidWindow = errors.New("invalid token validity window")
	// ErrInvalidKey rejects unusable private key material.
	ErrInvalidKey = errors.New("invalid rsa private key")
)

// Attempt records one candidate signer invocation.
type Attempt struct {
	Candidate string
	Err       error
}

// UnavailableError reports every attempt made before giving up, in order.
type UnavailableError struct {
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrSigningUnavailable.Error() + ": no signer candidates"
	}
	var b strings.Builder
	b.WriteString(ErrSigningUnavailable.Error())
	b.WriteString(": tried ")
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(a.Candidate)
		if a.Err != nil {
			b.WriteString(" (")
			b.WriteString(a.Err.Error())
			b.WriteString(")")
		}
	}
	return b.String()
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrSigningUnavailable
}

// Tried returns candidate names in the order they were attempted.
func (e *UnavailableError) Tried() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Candidate)
	}
	return out
}
