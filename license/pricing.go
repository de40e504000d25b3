package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/types"
	"golang.org/x/time/rate"
)

// DefaultPricingTTL bounds how often the pricing policy is refreshed.
const DefaultPricingTTL = 300 * time.Second

const maxPricingDocument = 64 << 10

// PricingSource supplies the current licensing policy. Implementations absorb
// their own failures and always return a usable policy.
type PricingSource interface {
	Policy(ctx context.Context) types.PricingPolicy
}

// StaticPricing always returns the same policy.
type StaticPricing types.PricingPolicy

func (s StaticPricing) Policy(context.Context) types.PricingPolicy { return types.PricingPolicy(s) }

// PricingManager refreshes the policy from a local override file, else a
// remote URL, else keeps the last cached value. Refreshes happen at most
// once per TTL.
type PricingManager struct {
	url       string
	localPath string
	client    *http.Client
	limiter   *rate.Limiter
	logger    logger.Logger

	mu     sync.Mutex
	cached types.PricingPolicy
	source string
}

type PricingOption func(*PricingManager)

func WithHTTPClient(c *http.Client) PricingOption {
	return func(m *PricingManager) {
		if c != nil {
			m.client = c
		}
	}
}

func WithPricingLogger(l logger.Logger) PricingOption {
	return func(m *PricingManager) { m.logger = logger.Or(l) }
}

// WithInitialPolicy seeds the cache used until a refresh succeeds.
func WithInitialPolicy(p types.PricingPolicy) PricingOption {
	return func(m *PricingManager) { m.cached = p }
}

func NewPricingManager(cfg types.PricingConfig, opts ...PricingOption) *PricingManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultPricingTTL
	}
	m := &PricingManager{
		url:       cfg.URL,
		localPath: cfg.LocalOverridePath,
		client:    &http.Client{Timeout: 5 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(ttl), 1),
		logger:    logger.NoopLogger{},
		cached:    types.DefaultPricingPolicy(),
		source:    "default",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the cached policy, refreshing it first when the TTL allows.
func (m *PricingManager) Policy(ctx context.Context) types.PricingPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limiter.Allow() {
		m.refresh(ctx)
	}
	return m.cached
}

// Source reports where the cached policy came from: default, file or remote.
func (m *PricingManager) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *PricingManager) refresh(ctx context.Context) {
	if m.localPath != "" {
		policy, err := m.readLocal()
		switch {
		case err == nil:
			m.cached, m.source = policy, "file"
			m.logger.Debug("pricing policy loaded from file", map[string]any{"path": m.localPath})
			return
		case !errors.Is(err, fs.ErrNotExist):
			m.logger.Warn("failed to read local pricing override", map[string]any{
				"path":  m.localPath,
				"error": err.Error(),
			})
		}
	}

	if m.url != "" {
		policy, err := m.fetchRemote(ctx)
		if err == nil {
			m.cached, m.source = policy, "remote"
			m.logger.Debug("pricing policy fetched", map[string]any{"url": m.url})
			return
		}
		m.logger.Warn("failed to fetch pricing policy, keeping cached value", map[string]any{
			"url":   m.url,
			"error": err.Error(),
		})
	}
}

func (m *PricingManager) readLocal() (types.PricingPolicy, error) {
	raw, err := os.ReadFile(m.localPath)
	if err != nil {
		return types.PricingPolicy{}, err
	}
	return m.decode(raw)
}

func (m *PricingManager) fetchRemote(ctx context.Context) (types.PricingPolicy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return types.PricingPolicy{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return types.PricingPolicy{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.PricingPolicy{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPricingDocument))
	if err != nil {
		return types.PricingPolicy{}, err
	}
	return m.decode(raw)
}

// decode overlays the document on the cached policy so omitted fields keep
// their previous value.
func (m *PricingManager) decode(raw []byte) (types.PricingPolicy, error) {
	policy := m.cached
	if err := json.Unmarshal(raw, &policy); err != nil {
		return types.PricingPolicy{}, fmt.Errorf("decode pricing policy: %w", err)
	}
	if policy.TrialDays < 0 || policy.SubscriptionPrice.IsNegative() || policy.PayPerUsePrice.IsNegative() {
		return types.PricingPolicy{}, errors.New("pricing policy has negative values")
	}
	return policy, nil
}
