package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muqeet1001/shikshasetu/internal/cache"
	"github.com/muqeet1001/shikshasetu/internal/logger"
	"github.com/muqeet1001/shikshasetu/internal/metrics"
	"github.com/muqeet1001/shikshasetu/internal/ratelimit"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

type fakeProvider struct {
	name       string
	configured bool
	result     *types.Result
	err        error
	calls      int
}

func (f *fakeProvider) Generate(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Configured() bool { return f.configured }

func newTestService(providers ...Provider) *Service {
	limiters := make(map[string]*ratelimit.Limiter)
	for _, p := range providers {
		limiters[p.Name()] = ratelimit.New(0)
	}
	return &Service{
		providers: providers,
		limiters:  limiters,
		cache:     cache.New(true, 10),
		timeout:   time.Second,
		citation:  true,
		collector: metrics.NewCollector(),
		log:       logger.New("error", "cloud"),
	}
}

func studentCtx() *types.StudentContext {
	return &types.StudentContext{
		FullName:   "Aisha Khan",
		ClassLevel: "12th",
		District:   "Srinagar",
		Interests:  []string{"biology"},
	}
}

func TestServiceFailover(t *testing.T) {
	primary := &fakeProvider{name: "gemini", configured: true, err: errors.New("quota exceeded")}
	secondary := &fakeProvider{
		name:       "huggingface",
		configured: true,
		result:     &types.Result{Text: "Consider NEET.", Source: types.SourceHuggingFace, Confidence: 0.8},
	}

	svc := newTestService(primary, secondary)
	result, err := svc.Send(context.Background(), "career help", studentCtx())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.Source != types.SourceHuggingFace {
		t.Errorf("source = %s, want huggingface", result.Source)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, secondary.calls)
	}
	if svc.collector.GetProviderFailures()["gemini"] != 1 {
		t.Error("expected gemini failure to be counted")
	}
}

func TestServiceAllProvidersFailReturnsLastError(t *testing.T) {
	primary := &fakeProvider{name: "gemini", configured: true, err: errors.New("quota exceeded")}
	secondary := &fakeProvider{name: "huggingface", configured: true, err: errors.New("model loading")}

	svc := newTestService(primary, secondary)
	_, err := svc.Send(context.Background(), "hello", studentCtx())
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if err.Error() != "model loading" {
		t.Errorf("error = %q, want last provider's error", err)
	}
}

func TestServiceSkipsUnconfiguredProvider(t *testing.T) {
	primary := &fakeProvider{name: "gemini", configured: false}
	secondary := &fakeProvider{
		name:       "huggingface",
		configured: true,
		result:     &types.Result{Text: "hi", Source: types.SourceHuggingFace},
	}

	svc := newTestService(primary, secondary)
	result, err := svc.Send(context.Background(), "hello", studentCtx())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if primary.calls != 0 {
		t.Error("unconfigured provider should never be called")
	}
	if result.Source != types.SourceHuggingFace {
		t.Errorf("source = %s, want huggingface", result.Source)
	}
}

func TestServiceNoProviderConfigured(t *testing.T) {
	svc := newTestService(&fakeProvider{name: "gemini", configured: false})
	_, err := svc.Send(context.Background(), "hello", studentCtx())
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("error = %v, want ErrNoProvider", err)
	}
}

func TestServiceCachesSuccess(t *testing.T) {
	provider := &fakeProvider{
		name:       "gemini",
		configured: true,
		result:     &types.Result{Text: "Take PCB.", Source: types.SourceGemini, Confidence: 0.9},
	}

	svc := newTestService(provider)
	sctx := studentCtx()

	if _, err := svc.Send(context.Background(), "Which stream?", sctx); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	result, err := svc.Send(context.Background(), "Which stream?", sctx)
	if err != nil {
		t.Fatalf("second Send() error = %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1 (second should hit cache)", provider.calls)
	}
	if result.Text != "Take PCB." {
		t.Errorf("cached text = %q", result.Text)
	}
	if hits, _ := svc.collector.GetCacheStats(); hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}
}

func TestServiceCitationDisabled(t *testing.T) {
	provider := &fakeProvider{
		name:       "gemini",
		configured: true,
		result:     &types.Result{Text: "According to NTA, NEET is in May.", Source: types.SourceGemini, HasCitation: true},
	}

	svc := newTestService(provider)
	svc.citation = false

	result, err := svc.Send(context.Background(), "when is neet", studentCtx())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.HasCitation {
		t.Error("citation flag should be stripped when the feature is off")
	}
}
