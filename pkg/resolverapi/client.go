// Package resolverapi provides an HTTP client for the external identifier
// resolution service. The client implements domain.IdentifierResolver and
// layers an in-process LRU cache, an optional Redis cache, client-side rate
// limiting and a circuit breaker around the service calls.
package resolverapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/omics-warehouse-loader/internal/domain"
)

// Config represents configuration for the resolver API client
type Config struct {
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	RateLimit int           `json:"rate_limit" mapstructure:"rate_limit"` // requests per second
	CacheSize int           `json:"cache_size" mapstructure:"cache_size"`
	RedisURL  string        `json:"redis_url" mapstructure:"redis_url"` // optional warm cache tier
	RedisTTL  time.Duration `json:"redis_ttl" mapstructure:"redis_ttl"`
}

// resolveResponse represents the JSON response of one resolution request
type resolveResponse struct {
	Identifier string   `json:"identifier"`
	Matches    []string `json:"matches"`
}

// Client handles interactions with the identifier resolution service.
// Candidate lists are cached in a bounded in-process LRU and, when
// configured, in Redis; only misses in both tiers reach the service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	hot        *lru.Cache[string, []string]
	warm       *CacheClient
	log        *logrus.Logger
}

// NewClient creates a new resolver API client
func NewClient(config Config, logger *logrus.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("resolver base URL cannot be empty")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 20
	}
	if config.CacheSize == 0 {
		config.CacheSize = 16384
	}

	hot, err := lru.New[string, []string](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate cache: %w", err)
	}

	var warm *CacheClient
	if config.RedisURL != "" {
		warm, err = NewCacheClient(config.RedisURL, config.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache client: %w", err)
		}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "IdentifierResolver",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		hot:       hot,
		warm:      warm,
		log:       logger,
	}, nil
}

// ResolveCandidates returns the primary identifiers the service knows for
// one identifier of the given kind. An identifier the service does not know
// yields an empty list and no error; transport failures, server errors and
// an open circuit breaker yield domain.ErrResolverUnavailable.
func (c *Client) ResolveCandidates(ctx context.Context, taxonID, kind, identifier string) ([]string, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}
	key := cacheKey(taxonID, kind, identifier)

	if candidates, ok := c.hot.Get(key); ok {
		return candidates, nil
	}
	if c.warm != nil {
		candidates, ok, err := c.warm.GetCandidates(ctx, key)
		if err != nil {
			c.log.WithError(err).Warn("Candidate cache lookup failed")
		} else if ok {
			c.hot.Add(key, candidates)
			return candidates, nil
		}
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchCandidates(ctx, taxonID, kind, identifier)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit breaker open", domain.ErrResolverUnavailable)
		}
		return nil, err
	}
	candidates := result.([]string)

	c.hot.Add(key, candidates)
	if c.warm != nil {
		if err := c.warm.SetCandidates(ctx, key, candidates); err != nil {
			c.log.WithError(err).Warn("Candidate cache write failed")
		}
	}
	return candidates, nil
}

// fetchCandidates performs the actual service call
func (c *Client) fetchCandidates(ctx context.Context, taxonID, kind, identifier string) ([]string, error) {
	resolveURL := fmt.Sprintf("%s/resolve?taxon=%s&type=%s&identifier=%s",
		c.baseURL, url.QueryEscape(taxonID), url.QueryEscape(kind), url.QueryEscape(identifier))

	req, err := http.NewRequestWithContext(ctx, "GET", resolveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "omics-warehouse-loader/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResolverUnavailable, err)
	}
	defer resp.Body.Close()

	// an unknown identifier is an ordinary empty result, not an outage
	if resp.StatusCode == http.StatusNotFound {
		return []string{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: resolver returned status %d: %s",
			domain.ErrResolverUnavailable, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if parsed.Matches == nil {
		return []string{}, nil
	}
	return parsed.Matches, nil
}

// Close releases the warm cache connection, if any.
func (c *Client) Close() error {
	if c.warm != nil {
		return c.warm.Close()
	}
	return nil
}

// cacheKey creates a standardized cache key for one lookup
func cacheKey(taxonID, kind, identifier string) string {
	return fmt.Sprintf("resolver:%s:%s:%s", taxonID, kind, identifier)
}
