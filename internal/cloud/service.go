// Package cloud implements the paid provider chain: Gemini first, then
// Hugging Face, each behind its own rate limiter, with a bounded
// response cache in front.
package cloud

import (
	"context"
	"errors"
	"time"

	"github.com/muqeet1001/shikshasetu/internal/cache"
	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/internal/logger"
	"github.com/muqeet1001/shikshasetu/internal/metrics"
	"github.com/muqeet1001/shikshasetu/internal/ratelimit"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// ErrNoProvider is returned when no cloud provider has an API key
var ErrNoProvider = errors.New("no cloud provider configured")

// Provider is one cloud backend in the failover chain
type Provider interface {
	Generate(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error)
	Name() string
	Configured() bool
}

// Service tries providers in order and returns the first success. Every
// provider call goes through that provider's rate limiter, so bursts of
// requests are paced independently per backend.
type Service struct {
	providers []Provider
	limiters  map[string]*ratelimit.Limiter
	cache     *cache.Cache
	timeout   time.Duration
	citation  bool
	collector *metrics.Collector
	log       *logger.Logger
}

// NewService builds the provider chain from config. The cache is shared
// with the caller so status reporting sees the same instance.
func NewService(cfg *config.Config, respCache *cache.Cache, collector *metrics.Collector) *Service {
	timeout := time.Duration(cfg.Performance.TimeoutMs) * time.Millisecond

	gemini := NewGeminiClient(cfg.Gemini, timeout)
	hf := NewHuggingFaceClient(cfg.HuggingFace, timeout)

	return &Service{
		providers: []Provider{gemini, hf},
		limiters: map[string]*ratelimit.Limiter{
			gemini.Name(): ratelimit.New(time.Duration(cfg.Gemini.RateLimitMs) * time.Millisecond),
			hf.Name():     ratelimit.New(time.Duration(cfg.HuggingFace.RateLimitMs) * time.Millisecond),
		},
		cache:     respCache,
		timeout:   timeout,
		citation:  cfg.Features.EnableCitation,
		collector: collector,
		log:       logger.New(cfg.Log.Level, "cloud"),
	}
}

// Send answers a message via the cloud. It consults the cache, then
// walks the provider chain; a success is cached and returned, and when
// every configured provider fails the last error is propagated.
func (s *Service) Send(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error) {
	start := time.Now()

	key := cache.Key(message, sctx)
	if cached, ok := s.cache.Get(key); ok {
		s.collector.IncCacheHit()
		cached.ResponseTime = time.Since(start)
		return &cached, nil
	}
	s.collector.IncCacheMiss()

	var lastErr error
	for _, p := range s.providers {
		if !p.Configured() {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		var result *types.Result
		err := s.limiters[p.Name()].Do(callCtx, func(ctx context.Context) error {
			r, genErr := p.Generate(ctx, message, sctx)
			if genErr != nil {
				return genErr
			}
			result = r
			return nil
		})
		cancel()

		if err != nil {
			s.collector.IncProviderFailure(p.Name())
			s.log.Warn("provider %s failed: %v", p.Name(), err)
			lastErr = err
			continue
		}

		if !s.citation {
			result.HasCitation = false
		}
		result.ResponseTime = time.Since(start)
		s.collector.AddTokens(result.TokensUsed)
		s.cache.Put(key, *result)
		return result, nil
	}

	if lastErr == nil {
		return nil, ErrNoProvider
	}
	return nil, lastErr
}

// Pending reports queued calls per provider, for status output
func (s *Service) Pending() map[string]int {
	pending := make(map[string]int, len(s.limiters))
	for name, l := range s.limiters {
		pending[name] = l.Pending()
	}
	return pending
}
