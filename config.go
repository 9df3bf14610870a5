package goRelay

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goRelay/jwt"
)

// Config defines the relay configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	GitHub   GitHubConfig
	App      AppConfig
	Rules    []Rule
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
GITHUB CONFIG
====================================
*/

// GitHubConfig defines where and how the relay talks to GitHub.
//
// GitHubConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GitHubConfig struct {
	BaseURL    string
	Repo       string // owner/name, default target for rules without Repo
	Token      string // personal access token for ActionDispatch
	APIVersion string
	Timeout    time.Duration
}

/*
====================================
APP CONFIG
====================================
*/

// AppConfig defines the GitHub App identity used to mint RS256 tokens.
//
// AppConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AppConfig struct {
	ID            string
	PrivateKeyPEM string
	Signers       []string // candidate order, e.g. "rs256", "pkcs1-text"
	Backdate      time.Duration
	Lifetime      time.Duration
}

/*
====================================
RULES
====================================
*/

// Action selects what a matching rule does.
type Action string

const (
	// ActionDispatch fires repository_dispatch with the personal access token.
	ActionDispatch Action = "dispatch"
	// ActionProbe mints an app JWT and checks the installation lookup accepts it.
	ActionProbe Action = "probe"
	// ActionAppDispatch fires repository_dispatch with an installation access token.
	ActionAppDispatch Action = "app-dispatch"
)

// Rule binds one tag to one action.
type Rule struct {
	Name      string
	Tag       string
	Action    Action
	EventType string
	Repo      string
}

/*
====================================
THROTTLE / AUDIT / METRICS
====================================
*/

// ThrottleConfig caps dispatches per issue and tag. Requires a Redis client.
type ThrottleConfig struct {
	Enabled       bool
	MaxDispatches int
	Window        time.Duration
	RedisPrefix   string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the two stock workflows: tag "andre" dispatches
// "youtrack-tag-dev-bot", tag "dev-bot" probes app authentication.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			BaseURL:    "https://api.github.com",
			APIVersion: "2022-11-28",
			Timeout:    15 * time.Second,
		},
		App: AppConfig{
			Signers:  []string{jwt.SignerRS256, jwt.SignerPKCS1Text},
			Backdate: jwt.DefaultBackdate,
			Lifetime: jwt.DefaultLifetime,
		},
		Rules: []Rule{
			{Name: "dev-bot-tag-applied", Tag: "andre", Action: ActionDispatch, EventType: "youtrack-tag-dev-bot"},
			{Name: "test-github-app-rs256", Tag: "dev-bot", Action: ActionProbe},
		},
		Throttle: ThrottleConfig{
			Enabled:       false,
			MaxDispatches: 3,
			Window:        time.Minute,
			RedisPrefix:   "gr",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.App.Signers = append([]string(nil), cfg.App.Signers...)
	out.Rules = append([]Rule(nil), cfg.Rules...)
	for i := range out.Rules {
		out.Rules[i].Tag = strings.TrimSpace(out.Rules[i].Tag)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate returns the first configuration problem found. It checks shape only;
// key material and signer names are resolved by Builder.Build, since a host may
// supply its own signers instead of a PEM key.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}

	if c.GitHub.BaseURL != "" {
		u, err := url.Parse(c.GitHub.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("GitHub BaseURL %q is not an absolute URL", c.GitHub.BaseURL)
		}
	}
	if c.GitHub.Repo != "" && !validRepo(c.GitHub.Repo) {
		return fmt.Errorf("GitHub Repo %q must be owner/name", c.GitHub.Repo)
	}
	if c.GitHub.Timeout < 0 {
		return errors.New("GitHub Timeout must be >= 0")
	}

	if len(c.Rules) == 0 {
		return errors.New("at least one rule is required")
	}

	needsPAT, needsApp := false, false
	seen := make(map[string]struct{}, len(c.Rules))
	for i, r := range c.Rules {
		if strings.TrimSpace(r.Tag) == "" {
			return fmt.Errorf("rule %d: Tag must be set", i)
		}
		if r.Name != "" {
			if _, dup := seen[r.Name]; dup {
				return fmt.Errorf("rule %d: duplicate name %q", i, r.Name)
			}
			seen[r.Name] = struct{}{}
		}
		repo := r.Repo
		if repo == "" {
			repo = c.GitHub.Repo
		}
		if repo == "" {
			return fmt.Errorf("rule %d: no Repo and no GitHub Repo default", i)
		}
		if !validRepo(repo) {
			return fmt.Errorf("rule %d: Repo %q must be owner/name", i, repo)
		}

		switch r.Action {
		case ActionDispatch:
			needsPAT = true
			if r.EventType == "" {
				return fmt.Errorf("rule %d: dispatch requires EventType", i)
			}
		case ActionAppDispatch:
			needsApp = true
			if r.EventType == "" {
				return fmt.Errorf("rule %d: app-dispatch requires EventType", i)
			}
		case ActionProbe:
			needsApp = true
		default:
			return fmt.Errorf("rule %d: unsupported action %q", i, r.Action)
		}
	}

	if needsPAT && strings.TrimSpace(c.GitHub.Token) == "" {
		return errors.New("dispatch rules require GitHub Token")
	}

	if needsApp {
		if _, err := strconv.ParseUint(strings.TrimSpace(c.App.ID), 10, 64); err != nil {
			return errors.New("app rules require a numeric App ID")
		}
		backdate, lifetime := jwt.ResolveWindow(c.App.Backdate, c.App.Lifetime)
		if backdate < 0 || lifetime <= 0 {
			return errors.New("App Backdate must be >= 0 (or jwt.NoBackdate) and Lifetime > 0")
		}
		if backdate+lifetime > jwt.DefaultMaxWindow {
			return fmt.Errorf("App Backdate %s + Lifetime %s must not exceed %s", backdate, lifetime, jwt.DefaultMaxWindow)
		}
	}

	if c.Throttle.Enabled {
		if c.Throttle.MaxDispatches <= 0 {
			return errors.New("Throttle MaxDispatches must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

func validRepo(repo string) bool {
	owner, name, ok := strings.Cut(repo, "/")
	return ok && owner != "" && name != "" && !strings.Contains(name, "/")
}
