// Package netmon tracks network reachability and classifies it into the
// coarse connection status the router keys its decisions on.
package netmon

import (
	"sync"

	"github.com/muqeet1001/shikshasetu/internal/logger"
	"github.com/muqeet1001/shikshasetu/pkg/types"
)

// Listener is notified whenever the derived connection status changes
type Listener func(types.ConnectionStatus)

// Monitor owns the process-wide network snapshot. It is the only
// component that mutates it; everyone else reads a copy.
type Monitor struct {
	snapshot  types.NetworkInfo
	status    types.ConnectionStatus
	listeners []Listener
	log       *logger.Logger
	mu        sync.RWMutex
}

// New creates a monitor that starts out disconnected
func New() *Monitor {
	return &Monitor{
		snapshot: types.NetworkInfo{Quality: types.QualityNone},
		status:   types.StatusOffline,
		log:      logger.New("info", "netmon"),
	}
}

// Subscribe registers a listener for status changes. Listeners are
// invoked outside the monitor's lock, in subscription order.
func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Snapshot returns a copy of the current network info
func (m *Monitor) Snapshot() types.NetworkInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Status returns the current derived connection status
func (m *Monitor) Status() types.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// State returns the snapshot and derived status as one consistent read.
// Routing decisions should use this rather than separate Snapshot and
// Status calls, which could straddle an event.
func (m *Monitor) State() (types.NetworkInfo, types.ConnectionStatus) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.status
}

// HandleEvent ingests a connectivity event, recomputes the snapshot and
// status, and notifies listeners only when the status actually changed.
// Two consecutive events that classify identically produce one
// notification, not two.
func (m *Monitor) HandleEvent(ev types.NetworkEvent) {
	m.mu.Lock()

	m.snapshot = types.NetworkInfo{
		Connected:         ev.Connected,
		Transport:         ev.Transport,
		InternetReachable: ev.InternetReachable,
		Quality:           classifyQuality(ev),
	}

	previous := m.status
	m.status = statusFor(m.snapshot)
	changed := m.status != previous
	status := m.status

	var listeners []Listener
	if changed {
		listeners = make([]Listener, len(m.listeners))
		copy(listeners, m.listeners)
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.log.Info("network status changed: %s -> %s", previous, status)
	for _, l := range listeners {
		l(status)
	}
}

// classifyQuality buckets an event into a quality category. Cellular
// uses the reported signal strength; wifi is excellent only when the
// internet is actually reachable; anything else connected counts as good.
func classifyQuality(ev types.NetworkEvent) types.Quality {
	if !ev.Connected {
		return types.QualityNone
	}

	if ev.Transport == "cellular" && ev.SignalStrength != nil {
		switch {
		case *ev.SignalStrength >= 80:
			return types.QualityExcellent
		case *ev.SignalStrength >= 60:
			return types.QualityGood
		default:
			return types.QualityPoor
		}
	}

	if ev.Transport == "wifi" {
		if ev.InternetReachable != nil && *ev.InternetReachable {
			return types.QualityExcellent
		}
		return types.QualityPoor
	}

	return types.QualityGood
}

// statusFor derives the three-valued status from a snapshot
func statusFor(info types.NetworkInfo) types.ConnectionStatus {
	if !info.Connected {
		return types.StatusOffline
	}
	if info.Quality == types.QualityPoor {
		return types.StatusLimited
	}
	return types.StatusOnline
}
