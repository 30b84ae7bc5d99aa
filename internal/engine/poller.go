package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/med-dispatch/internal/backend"
	"github.com/example/med-dispatch/internal/models"
)

// RemoteSink receives poll results; the Engine implements it. Kept as an
// interface so poller tests run against a recording fake.
type RemoteSink interface {
	ApplyRemote(rs models.RemoteState)
	SurfacePermanent(msg string)
}

// Poller is the bounded-interval reconciliation loop against the dispatch
// backend. Transient fetch failures retry inside the tick with exponential
// backoff; permanent failures (auth/permission) are surfaced once and not
// retried. The loop is cancelable so it can stop while the driver is
// offline.
type Poller struct {
	log         *slog.Logger
	backend     backend.Dispatch
	sink        RemoteSink
	interval    time.Duration
	backoffBase time.Duration
	maxRetries  int
	sleep       func(time.Duration)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewPoller(log *slog.Logger, b backend.Dispatch, sink RemoteSink, interval, backoffBase time.Duration, maxRetries int) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Poller{
		log:         log,
		backend:     b,
		sink:        sink,
		interval:    interval,
		backoffBase: backoffBase,
		maxRetries:  maxRetries,
		sleep:       time.Sleep,
	}
}

// Start launches the loop; a second Start while running is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

// Stop cancels the loop; safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick fetches the remote driver state, retrying transient failures with
// exponential backoff before giving up until the next interval.
func (p *Poller) tick(ctx context.Context) {
	delay := p.backoffBase
	for attempt := 0; ; attempt++ {
		rs, err := p.backend.FetchDriverState(ctx)
		if err == nil {
			p.sink.ApplyRemote(rs)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if !backend.IsTransient(err) {
			p.log.Error("poll failed permanently", "error", err)
			p.sink.SurfacePermanent(err.Error())
			return
		}
		if attempt >= p.maxRetries {
			p.log.Warn("poll tick abandoned after retries", "attempts", attempt+1, "error", err)
			return
		}
		p.log.Warn("poll fetch failed, backing off", "attempt", attempt+1, "delay", delay, "error", err)
		p.sleep(delay)
		delay *= 2
	}
}
