package netmon

import (
	"net/http"
	"sync"
	"time"

	"github.com/muqeet1001/shikshasetu/pkg/types"
)

const probeTimeout = 5 * time.Second

// Prober is the production connectivity source: it HEADs a probe URL on
// an interval and feeds synthesized events into the monitor. A failed
// probe is reported as disconnected.
type Prober struct {
	monitor  *Monitor
	url      string
	interval time.Duration
	client   *http.Client
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewProber creates a prober feeding the given monitor
func NewProber(m *Monitor, url string, interval time.Duration) *Prober {
	return &Prober{
		monitor:  m,
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: probeTimeout},
	}
}

// Start begins probing in the background. Starting a running prober is
// a no-op.
func (p *Prober) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	go p.loop()
}

// Stop halts probing
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
}

// IsRunning returns whether the probe loop is active
func (p *Prober) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Prober) loop() {
	// Probe once up front so the monitor doesn't sit on its initial
	// disconnected snapshot for a whole interval.
	p.probe()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.probe()
		}
	}
}

func (p *Prober) probe() {
	reachable := false
	resp, err := p.client.Head(p.url)
	if err == nil {
		resp.Body.Close()
		reachable = resp.StatusCode < 400
	}

	p.monitor.HandleEvent(types.NetworkEvent{
		Connected:         reachable,
		Transport:         "wifi",
		InternetReachable: &reachable,
	})
}
