package dispatch

import (
	"context"
	"sync"
	"time"

	"pinefarm/internal/registry"
	"pinefarm/pkg/logx"
)

// Poller is the interactive trigger context: it ticks on a fixed
// interval while an eligible admin session is active, and can be kicked
// to run immediately after a data change. It deliberately runs a
// push-only engine; email is the batch job's responsibility.
type Poller struct {
	engine   *Engine
	interval time.Duration
	log      logx.Logger

	mu      sync.Mutex
	viewer  registry.Preference
	started bool

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewPoller(engine *Engine, interval time.Duration, log logx.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Poller{
		engine:   engine,
		interval: interval,
		log:      log,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetViewer records the active session. Ticks are suppressed while no
// eligible admin is attached.
func (p *Poller) SetViewer(pref registry.Preference) {
	p.mu.Lock()
	p.viewer = pref
	p.mu.Unlock()
	if pref.Eligible() {
		p.Kick()
	}
}

func (p *Poller) viewerEligible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewer.Eligible()
}

// Kick requests an immediate tick. Non-blocking; a pending kick already
// covers this request.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	go p.run(ctx)
}

// Stop is safe to call even if the poller never started.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
		case <-p.kick:
		}

		if !p.viewerEligible() {
			continue
		}
		if _, err := p.engine.Tick(ctx, time.Now()); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error("poll tick failed", logx.Err(err))
		}
	}
}
