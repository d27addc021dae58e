// Package connectivity tracks whether the remote document store is
// reachable. The flag is process-wide: every data-layer operation reads it
// to choose between the remote path and the local-only path.
package connectivity

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"studytrack-backend/internal/remote"
)

type Monitor struct {
	online atomic.Bool

	mu   sync.Mutex
	subs []func(online bool)
}

func NewMonitor(initial bool) *Monitor {
	m := &Monitor{}
	m.online.Store(initial)
	return m
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline updates the state and notifies subscribers on transitions.
// Subscribers run synchronously; long-running work (resync) must spawn its
// own goroutine.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}

	if online {
		log.Println("connectivity: remote store reachable, going online")
	} else {
		log.Println("connectivity: remote store unreachable, going offline")
	}

	m.mu.Lock()
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a callback for online/offline transitions.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

const probeTimeout = 5 * time.Second

// Prober periodically pings the remote store and flips the monitor
// accordingly. It is the service-side analogue of a browser's
// online/offline events.
type Prober struct {
	monitor  *Monitor
	store    remote.Store
	interval time.Duration
	stopChan chan struct{}
}

func NewProber(monitor *Monitor, store remote.Store, interval time.Duration) *Prober {
	return &Prober{
		monitor:  monitor,
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (p *Prober) Start() {
	go func() {
		p.probe()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.probe()
			case <-p.stopChan:
				return
			}
		}
	}()
}

func (p *Prober) Stop() {
	select {
	case <-p.stopChan:
		return
	default:
		close(p.stopChan)
	}
}

func (p *Prober) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	p.monitor.SetOnline(p.store.Ping(ctx) == nil)
}
