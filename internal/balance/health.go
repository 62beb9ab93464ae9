package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// OriginStatus is the reported health of one origin.
type OriginStatus struct {
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	Weight           int       `json:"weight"`
	Healthy          bool      `json:"healthy"`
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// Monitor periodically probes each origin's health path. An origin is
// demoted after maxFailures consecutive failures and promoted again on
// the first success. Demotions and promotions flip the flag the Picker
// reads, so routing reacts without coordination.
type Monitor struct {
	picker      *Picker
	client      *http.Client
	path        string
	interval    time.Duration
	maxFailures int

	mu    sync.RWMutex
	fails map[string]int
	last  map[string]*OriginStatus

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor probing healthPath on every origin each
// interval. Origins fail after maxFailures consecutive bad probes.
func NewMonitor(picker *Picker, healthPath string, interval time.Duration, maxFailures int) *Monitor {
	if healthPath == "" {
		healthPath = "/healthz"
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	m := &Monitor{
		picker:      picker,
		client:      &http.Client{Timeout: 2 * time.Second},
		path:        healthPath,
		interval:    interval,
		maxFailures: maxFailures,
		fails:       make(map[string]int),
		last:        make(map[string]*OriginStatus),
	}
	for _, o := range picker.Origins() {
		m.last[o.Name] = &OriginStatus{Name: o.Name, URL: o.URL, Weight: o.Weight, Healthy: true}
	}
	return m
}

// Start launches the probe loop. Stop with Stop().
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkAll(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// checkAll probes every origin once.
func (m *Monitor) checkAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, o := range m.picker.Origins() {
		wg.Add(1)
		go func(o *Origin) {
			defer wg.Done()
			m.checkOne(ctx, o)
		}(o)
	}
	wg.Wait()
}

func (m *Monitor) checkOne(ctx context.Context, o *Origin) {
	err := m.probe(ctx, o)
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.last[o.Name]
	st.LastCheck = now

	if err == nil {
		wasUnhealthy := !o.Healthy()
		m.fails[o.Name] = 0
		st.ConsecutiveFails = 0
		st.LastHealthy = now
		st.Healthy = true
		o.setHealthy(true)
		if wasUnhealthy {
			logEvent("origin_recovered", o.Name, "")
		}
		return
	}

	m.fails[o.Name]++
	st.ConsecutiveFails = m.fails[o.Name]
	if m.fails[o.Name] >= m.maxFailures && o.Healthy() {
		o.setHealthy(false)
		st.Healthy = false
		logEvent("origin_unhealthy", o.Name, err.Error())
	}
}

// probe issues one GET against the origin's health path.
func (m *Monitor) probe(ctx context.Context, o *Origin) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.URL+m.path, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Statuses returns the latest status for every origin.
func (m *Monitor) Statuses() []OriginStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OriginStatus, 0, len(m.last))
	for _, o := range m.picker.Origins() {
		if st, ok := m.last[o.Name]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// logEvent emits a one-line JSON log, matching the service-wide format.
func logEvent(event, origin, errMsg string) {
	entry := map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"level":  "info",
		"msg":    event,
		"origin": origin,
	}
	if errMsg != "" {
		entry["level"] = "error"
		entry["error"] = errMsg
	}
	_ = json.NewEncoder(os.Stdout).Encode(entry)
}
