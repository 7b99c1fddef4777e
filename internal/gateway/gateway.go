// Package gateway exposes the request router over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/muqeet1001/shikshasetu/internal/cache"
	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/internal/logger"
	"github.com/muqeet1001/shikshasetu/internal/metrics"
	"github.com/muqeet1001/shikshasetu/internal/netmon"
	"github.com/muqeet1001/shikshasetu/internal/router"
	"github.com/muqeet1001/shikshasetu/internal/session"
	"github.com/muqeet1001/shikshasetu/internal/watcher"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// TelephonyHandler answers incoming voice-call webhooks. The gateway
// only routes the request; the integration (IVR provider, SIP bridge)
// supplies the handler.
type TelephonyHandler interface {
	HandleCall(w http.ResponseWriter, r *http.Request)
}

// Gateway wires the router, session store and monitor behind an HTTP
// server.
type Gateway struct {
	cfg       *config.Config
	mux       *http.ServeMux
	server    *http.Server
	router    *router.Router
	monitor   *netmon.Monitor
	sessions  *session.Store
	cache     *cache.Cache
	collector *metrics.Collector
	watcher   *watcher.ConfigWatcher
	telephony TelephonyHandler
	log       *logger.Logger
	startTime time.Time
	mu        sync.RWMutex // protects cfg and telephony during hot reload
}

// New creates a gateway around an assembled router. The session store
// may be nil; chat then runs stateless.
func New(cfg *config.Config, rt *router.Router, monitor *netmon.Monitor, sessions *session.Store, respCache *cache.Cache, collector *metrics.Collector) *Gateway {
	gw := &Gateway{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		router:    rt,
		monitor:   monitor,
		sessions:  sessions,
		cache:     respCache,
		collector: collector,
		log:       logger.New(cfg.Log.Level, "gateway"),
		startTime: time.Now(),
	}
	gw.setupRoutes()
	return gw
}

func (gw *Gateway) setupRoutes() {
	gw.mux.HandleFunc("/health", gw.handleHealth)
	gw.mux.HandleFunc("/chat", gw.handleChat)
	gw.mux.HandleFunc("/status", gw.handleStatus)
	gw.mux.HandleFunc("/connectivity", gw.handleConnectivity)
	gw.mux.HandleFunc("/telephony", gw.handleTelephony)
	if gw.cfg.Metrics.Enabled {
		path := gw.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		gw.mux.Handle(path, gw.collector.Handler())
	}
}

// Handler returns the gateway's HTTP handler, mainly for tests
func (gw *Gateway) Handler() http.Handler {
	return gw.mux
}

// SetTelephony installs the voice-call integration
func (gw *Gateway) SetTelephony(h TelephonyHandler) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.telephony = h
}

// UpdateConfig applies a reloaded config to the gateway and router
func (gw *Gateway) UpdateConfig(cfg *config.Config) {
	gw.mu.Lock()
	gw.cfg = cfg
	gw.mu.Unlock()
	gw.router.UpdateConfig(cfg)
	gw.log.Info("configuration updated")
}

func (gw *Gateway) config() *config.Config {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.cfg
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func (gw *Gateway) Start() error {
	cfg := gw.config()

	gw.watcher = watcher.New(config.Path(), 10*time.Second, gw.UpdateConfig)
	gw.watcher.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Bind, cfg.Gateway.Port)
	gw.server = &http.Server{
		Addr:    addr,
		Handler: gw.mux,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		gw.Shutdown()
	}()

	gw.log.Info("gateway listening on %s", addr)
	err := gw.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, rejects queued requests and closes the
// session store.
func (gw *Gateway) Shutdown() {
	gw.log.Info("shutting down")

	if gw.watcher != nil {
		gw.watcher.Stop()
	}

	if gw.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		gw.server.Shutdown(ctx)
	}

	gw.router.Close()

	if gw.sessions != nil {
		gw.sessions.Close()
	}
}

type chatRequest struct {
	SessionID string          `json:"sessionId"`
	Message   string          `json:"message"`
	Student   *studentProfile `json:"student"`
}

type studentProfile struct {
	FullName   string   `json:"fullName"`
	ClassLevel string   `json:"classLevel"`
	District   string   `json:"district"`
	Interests  []string `json:"interests"`
}

type chatResponse struct {
	SessionID      string            `json:"sessionId"`
	Text           string            `json:"text"`
	Source         types.Source      `json:"source"`
	Confidence     float64           `json:"confidence"`
	Mode           string            `json:"mode"`
	FallbackReason string            `json:"fallbackReason,omitempty"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
	TokensUsed     int               `json:"tokensUsed,omitempty"`
	HasCitation    bool              `json:"hasCitation"`
	Network        types.NetworkInfo `json:"network"`
	Advisory       *chatAdvisory     `json:"advisory,omitempty"`
}

type chatAdvisory struct {
	Text           string `json:"text"`
	FallbackReason string `json:"fallbackReason"`
}

func (gw *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sctx := gw.buildContext(sessionID, req.Student)

	var advisory *chatAdvisory
	var advMu sync.Mutex
	opts := &router.SendOptions{
		OnAdvisory: func(adv *types.RoutedResult) {
			advMu.Lock()
			advisory = &chatAdvisory{Text: adv.Text, FallbackReason: adv.FallbackReason}
			advMu.Unlock()
		},
	}

	result, err := gw.router.Send(r.Context(), req.Message, sctx, opts)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	gw.persistExchange(sessionID, sctx, req.Message, result)

	advMu.Lock()
	defer advMu.Unlock()
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:      sessionID,
		Text:           result.Text,
		Source:         result.Source,
		Confidence:     result.Confidence,
		Mode:           string(result.Mode),
		FallbackReason: result.FallbackReason,
		ResponseTimeMs: result.ResponseTime.Milliseconds(),
		TokensUsed:     result.TokensUsed,
		HasCitation:    result.HasCitation,
		Network:        result.Network,
		Advisory:       advisory,
	})
}

// buildContext merges the request's profile with the stored session.
// The request wins for profile fields; history always comes from the
// store.
func (gw *Gateway) buildContext(sessionID string, profile *studentProfile) *types.StudentContext {
	sctx := &types.StudentContext{SessionID: sessionID}

	if gw.sessions != nil {
		if stored, history, err := gw.sessions.Load(sessionID); err != nil {
			gw.log.Warn("failed to load session %s: %v", sessionID, err)
		} else {
			if stored != nil {
				*sctx = *stored
				sctx.SessionID = sessionID
			}
			sctx.PreviousMessages = history
		}
	}

	if profile != nil {
		sctx.FullName = profile.FullName
		sctx.ClassLevel = profile.ClassLevel
		sctx.District = profile.District
		sctx.Interests = profile.Interests
	}

	return sctx
}

func (gw *Gateway) persistExchange(sessionID string, sctx *types.StudentContext, message string, result *types.RoutedResult) {
	if gw.sessions == nil {
		return
	}

	now := time.Now()
	err := gw.sessions.Append(sessionID, sctx,
		types.Message{Role: types.RoleUser, Content: message, Timestamp: now},
		types.Message{Role: types.RoleAssistant, Content: result.Text, Timestamp: now},
	)
	if err != nil {
		gw.log.Warn("failed to persist session %s: %v", sessionID, err)
	}
}

type statusResponse struct {
	Status        types.ConnectionStatus `json:"status"`
	Network       types.NetworkInfo      `json:"network"`
	QueueDepth    int                    `json:"queueDepth"`
	QueueSize     int                    `json:"queueSize"`
	Cache         cache.Stats            `json:"cache"`
	UptimeSeconds int64                  `json:"uptimeSeconds"`
}

func (gw *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	stats := gw.router.GetStats()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        stats.Status,
		Network:       stats.Network,
		QueueDepth:    stats.QueueDepth,
		QueueSize:     stats.QueueSize,
		Cache:         gw.cache.GetStats(),
		UptimeSeconds: int64(time.Since(gw.startTime).Seconds()),
	})
}

// handleConnectivity ingests an externally observed network event, the
// same shape the probe produces internally. Useful for clients that
// know their own radio state better than an HTTP probe does.
func (gw *Gateway) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var ev types.NetworkEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gw.monitor.HandleEvent(ev)

	network, status := gw.monitor.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"network": network,
	})
}

func (gw *Gateway) handleTelephony(w http.ResponseWriter, r *http.Request) {
	if !gw.config().Features.EnableTelephony {
		writeError(w, http.StatusServiceUnavailable, "telephony is disabled")
		return
	}

	gw.mu.RLock()
	h := gw.telephony
	gw.mu.RUnlock()
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, "no telephony integration configured")
		return
	}

	h.HandleCall(w, r)
}

func (gw *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
