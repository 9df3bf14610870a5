package goRelay

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goRelay/github"
	"github.com/MrEthical07/goRelay/internal/audit"
	"github.com/MrEthical07/goRelay/internal/rate"
	"github.com/MrEthical07/goRelay/jwt"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Relay].
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	githubClient *github.Client
	signers      []jwt.Candidate
	logger       *slog.Logger
	auditSink    AuditSink
	now          func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the store used by the dispatch throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithGitHubClient overrides the client derived from GitHubConfig.
func (b *Builder) WithGitHubClient(c *github.Client) *Builder {
	b.githubClient = c
	return b
}

// WithSigners replaces the signers derived from AppConfig.Signers. Host runtimes
// that hold the key themselves use this instead of PrivateKeyPEM.
func (b *Builder) WithSigners(candidates ...jwt.Candidate) *Builder {
	b.signers = append([]jwt.Candidate(nil), candidates...)
	return b
}

// WithLogger sets the structured logger. Without one the relay logs nothing.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the wall clock used for token claims.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration once, parses key material, resolves signer
// candidates, and starts the audit dispatcher. A Builder can be built only once.
func (b *Builder) Build() (*Relay, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("Throttle requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Relay{
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		newID:   uuid.NewString,
		redis:   b.redis,
	}

	// -------- GITHUB CLIENT --------
	if b.githubClient != nil {
		r.github = b.githubClient
	} else {
		opts := []github.Option{
			github.WithAPIVersion(cfg.GitHub.APIVersion),
		}
		if cfg.GitHub.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
		}
		if cfg.GitHub.Timeout > 0 {
			opts = append(opts, github.WithHTTPClient(&http.Client{Timeout: cfg.GitHub.Timeout}))
		}
		r.github = github.NewClient(opts...)
	}

	// -------- APP TOKEN ASSEMBLER --------
	if needsAppAuth(cfg.Rules) || len(b.signers) > 0 {
		candidates := b.signers
		if len(candidates) == 0 {
			key, err := jwt.LoadPrivateKey(cfg.App.PrivateKeyPEM)
			if err != nil {
				return nil, err
			}
			candidates, err = namedCandidates(cfg.App.Signers, key)
			if err != nil {
				return nil, err
			}
			r.publicKey = &key.PublicKey
		}

		assembler, err := jwt.NewAssembler(jwt.Config{
			AppID:    cfg.App.ID,
			Backdate: cfg.App.Backdate,
			Lifetime: cfg.App.Lifetime,
			Now:      b.now,
			Logger:   logger.With("component", "jwt"),
		}, candidates...)
		if err != nil {
			return nil, err
		}
		r.assembler = assembler
	}

	// -------- THROTTLE / AUDIT --------
	r.limiter = rate.New(b.redis, rate.Config{
		Enabled:       cfg.Throttle.Enabled,
		MaxDispatches: cfg.Throttle.MaxDispatches,
		Window:        cfg.Throttle.Window,
		Prefix:        cfg.Throttle.RedisPrefix,
	})
	r.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return r, nil
}

func needsAppAuth(rules []Rule) bool {
	for _, r := range rules {
		if r.Action == ActionProbe || r.Action == ActionAppDispatch {
			return true
		}
	}
	return false
}

func namedCandidates(names []string, key *rsa.PrivateKey) ([]jwt.Candidate, error) {
	if len(names) == 0 {
		return nil, errors.New("app rules require at least one signer")
	}
	out := make([]jwt.Candidate, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		c, err := jwt.NamedSigner(name, key)
		if err != nil {
			return nil, fmt.Errorf("App Signers: %w", err)
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("App Signers %q resolved to nothing", strings.Join(names, ","))
	}
	return out, nil
}
