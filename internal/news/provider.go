// Package news retrieves and normalizes articles from pluggable providers,
// enriches them with extracted full text, ranks them by relevance, and
// caches the results.
package news

import (
	"context"
	"errors"
	"sync"
	"time"

	"newsagent/internal/model"
	"newsagent/internal/observability"
)

type ProviderName string

const (
	ProviderNewsAPI ProviderName = "newsapi"
	ProviderRSS     ProviderName = "rss"
)

var (
	errNoProvidersAvailable = errors.New("no news providers available")
	errProviderNotFound     = errors.New("news provider not found")
)

// Query describes one search request handed to a provider.
type Query struct {
	Topic          string
	Language       string
	Limit          int
	PublishedAfter time.Time
}

// Provider is a source of news articles. Implementations map their wire
// format into model.Article; normalization beyond that is the service's job.
type Provider interface {
	Name() ProviderName
	Search(ctx context.Context, q Query) ([]model.Article, error)
	Headlines(ctx context.Context, language string, limit int) ([]model.Article, error)
	IsAvailable() bool
}

// Registry holds providers in registration order and walks them with a
// per-provider circuit breaker until one answers.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderName]Provider
	order     []ProviderName

	circuitBreakers map[ProviderName]*circuitBreaker
}

func NewRegistry() *Registry {
	return &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           []ProviderName{},
		circuitBreakers: make(map[ProviderName]*circuitBreaker),
	}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)
	r.circuitBreakers[name] = newCircuitBreaker()
}

func (r *Registry) Get(name ProviderName) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, errProviderNotFound
	}

	return p, nil
}

// SearchWithFallback tries each registered provider in order and returns
// the first successful result along with the provider that produced it.
func (r *Registry) SearchWithFallback(ctx context.Context, q Query) ([]model.Article, ProviderName, error) {
	return r.withFallback(func(p Provider) ([]model.Article, error) {
		return p.Search(ctx, q)
	})
}

// HeadlinesWithFallback is SearchWithFallback for recent headline fetches.
func (r *Registry) HeadlinesWithFallback(ctx context.Context, language string, limit int) ([]model.Article, ProviderName, error) {
	return r.withFallback(func(p Provider) ([]model.Article, error) {
		return p.Headlines(ctx, language, limit)
	})
}

func (r *Registry) withFallback(call func(Provider) ([]model.Article, error)) ([]model.Article, ProviderName, error) {
	r.mu.RLock()
	order := make([]ProviderName, len(r.order))
	copy(order, r.order)
	r.mu.RUnlock()

	for _, name := range order {
		provider, err := r.Get(name)
		if err != nil {
			continue
		}

		if !provider.IsAvailable() {
			continue
		}

		cb := r.circuitBreaker(name)
		if !cb.canAttempt() {
			continue
		}

		articles, err := call(provider)
		if err != nil {
			cb.recordFailure()
			observability.ProviderRequests.WithLabelValues(string(name), "error").Inc()

			continue
		}

		cb.recordSuccess()
		observability.ProviderRequests.WithLabelValues(string(name), "success").Inc()

		return articles, name, nil
	}

	return nil, "", errNoProvidersAvailable
}

func (r *Registry) AvailableProviders() []ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	available := []ProviderName{}

	for _, name := range r.order {
		if r.providers[name].IsAvailable() && r.circuitBreakers[name].canAttempt() {
			available = append(available, name)
		}
	}

	return available
}

func (r *Registry) circuitBreaker(name ProviderName) *circuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.circuitBreakers[name]
}

const (
	circuitBreakerThreshold  = 3
	circuitBreakerResetAfter = 5 * time.Minute
	circuitHalfOpenSuccesses = 2
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

type circuitBreaker struct {
	mu           sync.Mutex
	failures     int
	lastFailure  time.Time
	state        circuitState
	successCount int
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{state: circuitClosed}
}

func (cb *circuitBreaker) canAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailure) > circuitBreakerResetAfter {
			cb.state = circuitHalfOpen
			cb.successCount = 0

			return true
		}

		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == circuitHalfOpen {
		cb.successCount++
		if cb.successCount >= circuitHalfOpenSuccesses {
			cb.state = circuitClosed
		}
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= circuitBreakerThreshold {
		cb.state = circuitOpen
	}
}
