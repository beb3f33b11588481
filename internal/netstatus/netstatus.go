// Package netstatus tracks upstream network reachability. Transitions only
// affect the decision for the next request; there is no retry machinery.
package netstatus

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      *slog.Logger
	online   atomic.Bool
}

func NewProber(url string, interval time.Duration, client *http.Client, log *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Prober{url: url, interval: interval, client: client, log: log}
	p.online.Store(true)
	return p
}

func (p *Prober) Online() bool { return p.online.Load() }

// Start probes immediately and then on every tick until ctx is done.
func (p *Prober) Start(ctx context.Context) {
	if p.url == "" || p.interval <= 0 {
		return
	}
	go func() {
		p.probe(ctx)
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				p.probe(ctx)
			}
		}
	}()
}

func (p *Prober) probe(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, p.url, nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	up := err == nil && resp.StatusCode < 500
	if resp != nil {
		_ = resp.Body.Close()
	}
	if was := p.online.Swap(up); was != up {
		if up {
			p.log.Info("network reachable again")
		} else {
			p.log.Warn("network unreachable, next requests will use canned data", "err", err)
		}
	}
}
