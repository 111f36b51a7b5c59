package services

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// NetworkMonitor tracks whether the upstream network is reachable and
// notifies subscribers when the state flips. The cache layer reads the
// flag on every fetch.
type NetworkMonitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client

	mu          sync.RWMutex
	online      bool
	subscribers []func(online bool)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNetworkMonitor creates a monitor that probes probeURL every interval.
// The monitor starts out online; the first probe corrects it.
func NewNetworkMonitor(probeURL string, interval time.Duration) *NetworkMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &NetworkMonitor{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		online:   true,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the probe loop.
func (m *NetworkMonitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.probe()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.probe()
			}
		}
	}()
}

// Stop stops the probe loop.
func (m *NetworkMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Online reports the last observed network state.
func (m *NetworkMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline overrides the flag and notifies subscribers on change.
func (m *NetworkMonitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	subs := make([]func(bool), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		log.Println("📶 [NETWORK] Back online")
	} else {
		log.Println("📴 [NETWORK] Offline")
	}

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a callback for state changes. The current state
// is delivered synchronously before Subscribe returns.
func (m *NetworkMonitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	current := m.online
	m.mu.Unlock()

	fn(current)
}

func (m *NetworkMonitor) probe() {
	req, err := http.NewRequestWithContext(m.ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.SetOnline(false)
		return
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.SetOnline(false)
		return
	}
	resp.Body.Close()

	m.SetOnline(resp.StatusCode < 500)
}
