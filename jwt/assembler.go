package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultBackdate moves iat into the past to absorb clock skew.
	DefaultBackdate = time.Minute
	// DefaultLifetime is how far past now exp is set.
	DefaultLifetime = 9 * time.Minute
	// DefaultMaxWindow is the longest exp-iat GitHub accepts.
	DefaultMaxWindow = 10 * time.Minute
	// NoBackdate asks for iat == now. A zero Backdate means DefaultBackdate.
	NoBackdate time.Duration = -1
)

// ResolveWindow applies the defaults NewAssembler uses to a configured
// backdate and lifetime.
func ResolveWindow(backdate, lifetime time.Duration) (time.Duration, time.Duration) {
	switch backdate {
	case 0:
		backdate = DefaultBackdate
	case NoBackdate:
		backdate = 0
	}
	if lifetime == 0 {
		lifetime = DefaultLifetime
	}
	return backdate, lifetime
}

// Config holds the assembler inputs. It is validated once by [NewAssembler].
type Config struct {
	AppID     string
	Backdate  time.Duration
	Lifetime  time.Duration
	MaxWindow time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Assembler mints GitHub App tokens. It holds no mutable state and is safe for
// concurrent use when its signers are.
type Assembler struct {
	config     Config
	candidates []Candidate
}

// Token is a freshly minted bearer credential.
type Token struct {
	Value     string
	Claims    Claims
	Signer    string
	Tried     []string
	ExpiresAt time.Time
}

// Expired reports whether the token can no longer be presented.
func (t *Token) Expired(now time.Time) bool {
	return t == nil || !now.Before(t.ExpiresAt)
}

// NewAssembler validates cfg and fixes the candidate order.
func NewAssembler(cfg Config, candidates ...Candidate) (*Assembler, error) {
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	if err := validateAppID(cfg.AppID); err != nil {
		return nil, err
	}
	cfg.Backdate, cfg.Lifetime = ResolveWindow(cfg.Backdate, cfg.Lifetime)
	if cfg.MaxWindow == 0 {
		cfg.MaxWindow = DefaultMaxWindow
	}
	if cfg.Backdate < 0 || cfg.Lifetime <= 0 {
		return nil, fmt.Errorf("%w: backdate must be >= 0 and lifetime > 0", ErrInvalidWindow)
	}
	if cfg.Backdate+cfg.Lifetime > cfg.MaxWindow {
		return nil, fmt.Errorf("%w: backdate %s + lifetime %s exceeds %s", ErrInvalidWindow, cfg.Backdate, cfg.Lifetime, cfg.MaxWindow)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Signer == nil {
			continue
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, errors.New("signer candidate requires a name")
		}
		kept = append(kept, c)
	}

	return &Assembler{config: cfg, candidates: kept}, nil
}

// Candidates returns the configured candidate names in probe order.
func (a *Assembler) Candidates() []string {
	out := make([]string, 0, len(a.candidates))
	for _, c := range a.candidates {
		out = append(out, c.Name)
	}
	return out
}

// Mint builds claims from the clock and signs them with the first candidate that
// succeeds. When none does, the returned error is an [*UnavailableError] and no token
// is produced.
func (a *Assembler) Mint(ctx context.Context) (*Token, error) {
	claims := NewAppClaims(a.config.AppID, a.config.Now(), a.config.Backdate, a.config.Lifetime)
	return a.MintClaims(ctx, claims)
}

// MintClaims signs an explicit claim set.
func (a *Assembler) MintClaims(ctx context.Context, claims Claims) (*Token, error) {
	if err := claims.Validate(a.config.MaxWindow); err != nil {
		return nil, err
	}
	signingInput := BuildSigningInput(RS256Header, claims)

	attempts := make([]Attempt, 0, len(a.candidates))
	for _, c := range a.candidates {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Candidate: c.Name, Err: err})
			break
		}

		value, err := a.try(ctx, c, signingInput)
		if err != nil {
			a.config.Logger.Warn("signer candidate failed", "candidate", c.Name, "error", err)
			attempts = append(attempts, Attempt{Candidate: c.Name, Err: err})
			continue
		}

		attempts = append(attempts, Attempt{Candidate: c.Name})
		tried := make([]string, 0, len(attempts))
		for _, at := range attempts {
			tried = append(tried, at.Candidate)
		}
		return &Token{
			Value:     value,
			Claims:    claims,
			Signer:    c.Name,
			Tried:     tried,
			ExpiresAt: claims.Expiry(),
		}, nil
	}

	return nil, &UnavailableError{Attempts: attempts}
}

func (a *Assembler) try(ctx context.Context, c Candidate, signingInput string) (token string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: signer panicked: %v", ErrSigningFailed, r)
		}
	}()

	sig, err := c.Signer.Sign(ctx, signingInput)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return Assemble(signingInput, sig)
}
