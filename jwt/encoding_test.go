package jwt

import (
	"bytes"
	"encoding/base64"
	"math/rand"
	"strings"
	"testing"
)

func b64ToStandard(s string) string {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return s
}

func TestEncodeSegmentRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 0; n <= 96; n++ {
		b := make([]byte, n)
		r.Read(b)

		enc := EncodeSegment(b)
		if strings.ContainsAny(enc, "+/=\n") {
			t.Fatalf("len %d: encoding %q contains non url-safe characters", n, enc)
		}
		dec, err := base64.StdEncoding.DecodeString(b64ToStandard(enc))
		if err != nil {
			t.Fatalf("len %d: decode %q: %v", n, enc, err)
		}
		if !bytes.Equal(dec, b) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestEncodeSegmentKnownVectors(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte{}, ""},
		{[]byte{0x00}, "AA"},
		{[]byte{0xFF}, "_w"},
		{[]byte{0xFB, 0xFF}, "-_8"},
		{[]byte{1, 2, 3}, "AQID"},
	}
	for _, tc := range cases {
		if got := EncodeSegment(tc.in); got != tc.want {
			t.Fatalf("EncodeSegment(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEncodeStringUsesUTF8Bytes(t *testing.T) {
	got := EncodeString("héllo ✓")
	dec, err := base64.RawURLEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(dec) != "héllo ✓" {
		t.Fatalf("decoded %q", dec)
	}
	if EncodeString(`{"alg":"RS256","typ":"JWT"}`) != "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9" {
		t.Fatal("header encoding does not match the well-known RS256 header segment")
	}
}

func TestNormalizeBase64(t *testing.T) {
	got, err := NormalizeBase64("ab+c/d==")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "ab-c_d" {
		t.Fatalf("expected ab-c_d, got %q", got)
	}

	got, err = NormalizeBase64("AQID\r\nAQID")
	if err != nil || got != "AQIDAQID" {
		t.Fatalf("expected line breaks stripped, got %q err=%v", got, err)
	}

	for _, bad := range []string{"", "===", "abcde", "ab*c", "ab.c"} {
		if _, err := NormalizeBase64(bad); err != ErrMalformedSignature {
			t.Fatalf("NormalizeBase64(%q) err = %v, want ErrMalformedSignature", bad, err)
		}
	}
}

func TestBuildSigningInputDeterministic(t *testing.T) {
	c := Claims{IssuedAt: 1000, ExpiresAt: 1540, Issuer: "123456"}
	first := BuildSigningInput(RS256Header, c)
	for i := 0; i < 50; i++ {
		if got := BuildSigningInput(RS256Header, c); got != first {
			t.Fatalf("signing input changed between calls: %q vs %q", got, first)
		}
	}

	parts := strings.Split(first, ".")
	if len(parts) != 2 {
		t.Fatalf("expected two segments, got %d", len(parts))
	}
	header, _ := base64.RawURLEncoding.DecodeString(parts[0])
	claims, _ := base64.RawURLEncoding.DecodeString(parts[1])
	if string(header) != `{"alg":"RS256","typ":"JWT"}` {
		t.Fatalf("header json = %s", header)
	}
	if string(claims) != `{"iat":1000,"exp":1540,"iss":"123456"}` {
		t.Fatalf("claims json = %s", claims)
	}
}

func TestAssembleDetectsSignatureForm(t *testing.T) {
	raw, err := Assemble("h.c", RawSignature([]byte{1, 2, 3}))
	if err != nil || raw != "h.c.AQID" {
		t.Fatalf("raw assemble = %q err=%v", raw, err)
	}

	text, err := Assemble("h.c", TextSignature("ab+c/d=="))
	if err != nil || text != "h.c.ab-c_d" {
		t.Fatalf("text assemble = %q err=%v", text, err)
	}

	if _, err := Assemble("h.c", Signature{}); err != ErrMalformedSignature {
		t.Fatalf("zero signature err = %v", err)
	}
	if _, err := Assemble("h.c", RawSignature(nil)); err != ErrMalformedSignature {
		t.Fatalf("empty raw signature err = %v", err)
	}
}
