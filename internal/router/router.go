// Package router decides where each request is answered: the cloud
// provider chain when the network allows it, a deferred queue under
// limited connectivity, and the offline pattern engine otherwise.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/internal/logger"
	"github.com/muqeet1001/shikshasetu/internal/metrics"
	"github.com/muqeet1001/shikshasetu/internal/netmon"
	"github.com/muqeet1001/shikshasetu/internal/offline"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// Fallback reasons surfaced alongside offline answers
const (
	ReasonNoConnection = "No internet connection"
	ReasonPoorQuality  = "Poor connection quality, using offline mode"
	ReasonCloudOff     = "Cloud API disabled"
	ReasonQueued       = "Request queued for better connection, showing offline response"
	ReasonDrainFailed  = "Queued cloud request failed, using offline response"
)

// ErrClosed is returned to callers whose queued request was rejected by
// a shutdown
var ErrClosed = errors.New("router closed")

// CloudService answers a message via the cloud provider chain
type CloudService interface {
	Send(ctx context.Context, message string, sctx *types.StudentContext) (*types.Result, error)
}

// SpeechRecognizer turns captured audio into text
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// SendOptions tunes a single Send call. OnAdvisory, when set, receives
// an immediate offline answer for a request that was queued for later
// cloud processing, so the student sees something while waiting.
type SendOptions struct {
	OnAdvisory func(*types.RoutedResult)
}

type queuedRequest struct {
	id      string
	ctx     context.Context
	message string
	sctx    *types.StudentContext
	done    chan *types.RoutedResult
}

// Router routes requests between cloud and offline processing based on
// the current connection status.
type Router struct {
	cfg        *config.Config
	cloud      CloudService
	offline    *offline.Engine
	monitor    *netmon.Monitor
	collector  *metrics.Collector
	recognizer SpeechRecognizer
	log        *logger.Logger

	queue    []*queuedRequest
	draining bool
	closed   bool
	mu       sync.Mutex
}

// New creates a router and subscribes it to connectivity changes so the
// queue drains as soon as the connection recovers.
func New(cfg *config.Config, cloudSvc CloudService, engine *offline.Engine, monitor *netmon.Monitor, collector *metrics.Collector) *Router {
	r := &Router{
		cfg:       cfg,
		cloud:     cloudSvc,
		offline:   engine,
		monitor:   monitor,
		collector: collector,
		log:       logger.New(cfg.Log.Level, "router"),
	}

	monitor.Subscribe(func(s types.ConnectionStatus) {
		if s == types.StatusOnline {
			go r.drainQueue()
		}
	})

	return r
}

// UpdateConfig swaps the active config, e.g. after a hot reload
func (r *Router) UpdateConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

func (r *Router) config() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// SetRecognizer installs the speech backend used by ProcessVoice
func (r *Router) SetRecognizer(rec SpeechRecognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizer = rec
}

// Send answers a message. It always produces a usable result while the
// router is open: cloud failures and engine panics degrade to offline
// or apology answers rather than errors. The returned result carries
// the total wall-clock time including any queue wait.
func (r *Router) Send(ctx context.Context, message string, sctx *types.StudentContext, opts *SendOptions) (*types.RoutedResult, error) {
	start := time.Now()
	if sctx == nil {
		sctx = &types.StudentContext{}
	}

	result, err := r.route(ctx, message, sctx, opts)
	if err != nil {
		return nil, err
	}

	result.ResponseTime = time.Since(start)
	r.collector.IncRequests(string(result.Mode))
	return result, nil
}

func (r *Router) route(ctx context.Context, message string, sctx *types.StudentContext, opts *SendOptions) (*types.RoutedResult, error) {
	network, status := r.monitor.State()

	if !r.config().Features.EnableCloudAPI {
		return r.answerOffline(message, sctx, network, types.ModeOfflinePrimary, ReasonCloudOff), nil
	}

	switch status {
	case types.StatusOnline:
		result, err := r.cloud.Send(ctx, message, sctx)
		if err != nil {
			r.log.Warn("cloud failed, answering offline: %v", err)
			return r.answerOffline(message, sctx, network, types.ModeOfflineFallback,
				fmt.Sprintf("Cloud API failed: %v", err)), nil
		}
		return &types.RoutedResult{Result: *result, Network: network, Mode: types.ModeCloudPrimary}, nil

	case types.StatusLimited:
		if r.isImportant(message) {
			if qr, ok := r.enqueue(ctx, message, sctx); ok {
				r.log.Info("queued request %s for better connection", qr.id)
				if opts != nil && opts.OnAdvisory != nil {
					opts.OnAdvisory(r.answerOffline(message, sctx, network, types.ModeOfflineFallback, ReasonQueued))
				}
				select {
				case result := <-qr.done:
					if result == nil {
						return nil, ErrClosed
					}
					return result, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
		return r.answerOffline(message, sctx, network, types.ModeOfflinePrimary, ReasonPoorQuality), nil

	default:
		return r.answerOffline(message, sctx, network, types.ModeOfflinePrimary, ReasonNoConnection), nil
	}
}

// isImportant reports whether a message should survive limited
// connectivity by waiting for a real cloud answer
func (r *Router) isImportant(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range r.config().Performance.ImportantKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (r *Router) enqueue(ctx context.Context, message string, sctx *types.StudentContext) (*queuedRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || len(r.queue) >= r.cfg.Performance.QueueSize {
		return nil, false
	}

	qr := &queuedRequest{
		id:      uuid.NewString(),
		ctx:     ctx,
		message: message,
		sctx:    sctx,
		done:    make(chan *types.RoutedResult, 1),
	}
	r.queue = append(r.queue, qr)
	r.collector.IncQueued()
	r.collector.SetQueueDepth(len(r.queue))
	return qr, true
}

// drainQueue resolves queued requests oldest first while the connection
// stays online. One drain runs at a time.
func (r *Router) drainQueue() {
	r.mu.Lock()
	if r.draining || r.closed {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.draining = false
		r.mu.Unlock()
	}()

	for {
		if _, status := r.monitor.State(); status != types.StatusOnline {
			return
		}

		r.mu.Lock()
		if r.closed || len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		qr := r.queue[0]
		r.queue = r.queue[1:]
		r.collector.SetQueueDepth(len(r.queue))
		r.mu.Unlock()

		r.resolve(qr)
	}
}

// resolve answers one drained request via the cloud, degrading to an
// offline answer if the delayed call fails too.
func (r *Router) resolve(qr *queuedRequest) {
	network, _ := r.monitor.State()

	result, err := r.cloud.Send(qr.ctx, qr.message, qr.sctx)
	if err != nil {
		r.log.Warn("drained request %s failed: %v", qr.id, err)
		qr.done <- r.answerOffline(qr.message, qr.sctx, network, types.ModeOfflineFallback, ReasonDrainFailed)
	} else {
		qr.done <- &types.RoutedResult{Result: *result, Network: network, Mode: types.ModeCloudFallback}
	}
	r.collector.IncDrained()
}

// answerOffline runs the pattern engine. A panic anywhere in matching is
// contained here and converted into a low-confidence apology, so a bad
// pattern can never take a request down.
func (r *Router) answerOffline(message string, sctx *types.StudentContext, network types.NetworkInfo, mode types.ProcessingMode, reason string) (routed *types.RoutedResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("offline engine panicked: %v", rec)
			routed = &types.RoutedResult{
				Result: types.Result{
					Text:       apologyText(sctx),
					Source:     types.SourceFallback,
					Confidence: 0.1,
				},
				Network:        network,
				Mode:           types.ModeOfflineFallback,
				FallbackReason: fmt.Sprintf("System error: %v", rec),
			}
		}
	}()

	result := r.offline.Match(message, sctx)
	return &types.RoutedResult{
		Result:         result,
		Network:        network,
		Mode:           mode,
		FallbackReason: reason,
	}
}

func apologyText(sctx *types.StudentContext) string {
	if first := sctx.FirstName(); first != "" {
		return fmt.Sprintf("Sorry %s, I'm experiencing technical difficulties. Please try again in a moment.", first)
	}
	return "Sorry, I'm experiencing technical difficulties. Please try again in a moment."
}

// ProcessVoice transcribes audio and routes the resulting text
func (r *Router) ProcessVoice(ctx context.Context, audio []byte, sctx *types.StudentContext, opts *SendOptions) (string, *types.RoutedResult, error) {
	if !r.config().Features.EnableSpeech {
		return "", nil, errors.New("speech recognition is disabled")
	}

	r.mu.Lock()
	rec := r.recognizer
	r.mu.Unlock()
	if rec == nil {
		return "", nil, errors.New("no speech recognizer configured")
	}

	text, err := rec.Transcribe(ctx, audio)
	if err != nil {
		return "", nil, fmt.Errorf("transcribe: %w", err)
	}

	result, err := r.Send(ctx, text, sctx, opts)
	return text, result, err
}

// QueueDepth returns the number of requests waiting for a drain
func (r *Router) QueueDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Stats describes the router for status reporting
type Stats struct {
	Status     types.ConnectionStatus `json:"status"`
	Network    types.NetworkInfo      `json:"network"`
	QueueDepth int                    `json:"queueDepth"`
	QueueSize  int                    `json:"queueSize"`
}

// GetStats returns the current routing state
func (r *Router) GetStats() Stats {
	network, status := r.monitor.State()
	return Stats{
		Status:     status,
		Network:    network,
		QueueDepth: r.QueueDepth(),
		QueueSize:  r.config().Performance.QueueSize,
	}
}

// Close rejects all queued requests and stops accepting new ones.
// Callers blocked on a queued request receive ErrClosed.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	pending := r.queue
	r.queue = nil
	r.collector.SetQueueDepth(0)
	r.mu.Unlock()

	for _, qr := range pending {
		qr.done <- nil
	}
}
