package dispatch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"pinefarm/pkg/logx"
)

// Batch is the periodic trigger context: a cron-scheduled sweep that
// runs the full-channel engine regardless of any interactive session.
type Batch struct {
	engine   *Engine
	schedule string
	log      logx.Logger

	cron *cron.Cron
}

func NewBatch(engine *Engine, schedule string, log logx.Logger) *Batch {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Batch{engine: engine, schedule: schedule, log: log}
}

// Start registers the schedule and begins running. The cron job carries
// its own background context; cancellation happens through Stop.
func (b *Batch) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(b.schedule, func() {
		if _, err := b.engine.Tick(ctx, time.Now()); err != nil && ctx.Err() == nil {
			b.log.Error("batch tick failed", logx.Err(err))
		}
	})
	if err != nil {
		return err
	}
	b.cron = c
	c.Start()
	b.log.Info("batch schedule registered", logx.String("schedule", b.schedule))
	return nil
}

func (b *Batch) Stop() {
	if b.cron == nil {
		return
	}
	<-b.cron.Stop().Done()
}

// RunOnce executes a single sweep immediately. Used by the one-shot
// command flag and by tests.
func (b *Batch) RunOnce(ctx context.Context) (Summary, error) {
	return b.engine.Tick(ctx, time.Now())
}
