// Package dispatch runs the reminder engine and its two trigger
// contexts: the interactive poller and the periodic batch job. Both
// call the same stateless Tick against the shared store, so the
// dispatch log is the only duplicate gate.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pinefarm/internal/config"
	"pinefarm/internal/notify"
	"pinefarm/internal/registry"
	"pinefarm/internal/remind"
	"pinefarm/internal/store"
	"pinefarm/pkg/logx"
)

// Summary is the per-tick accounting surfaced in logs and returned to
// callers that run a single tick.
type Summary struct {
	Checked        int
	Candidates     int
	Triggered      int
	SkippedLogged  int
	PushSent       int
	PushFailed     int
	EmailSent      int
	EmailFailed    int
	InvalidRemoved int
	Pruned         int64
}

type Engine struct {
	store    *store.Store
	registry *registry.Registry
	fanout   *notify.Fanout
	res      *remind.Resolver
	eval     *remind.Evaluator
	cfg      config.ReminderConfig
	log      logx.Logger
}

func NewEngine(st *store.Store, reg *registry.Registry, fanout *notify.Fanout, cfg config.ReminderConfig, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	res := remind.NewResolver(cfg.Timezone, cfg.UTCOffset, cfg.DefaultTime)
	return &Engine{
		store:    st,
		registry: reg,
		fanout:   fanout,
		res:      res,
		eval:     remind.NewEvaluator(res, cfg.Offsets),
		cfg:      cfg,
		log:      log,
	}
}

// Tick evaluates every pending task against now and dispatches whatever
// fires. All state lives in the store; concurrent ticks from both
// trigger contexts are safe because the dispatch log insert is the only
// write that decides "already sent".
func (e *Engine) Tick(ctx context.Context, now time.Time) (Summary, error) {
	run := uuid.NewString()[:8]
	log := e.log.With(logx.String("run", run))

	var sum Summary

	rcpt, err := e.registry.Recipients(ctx, e.cfg.AdminEmails)
	if err != nil {
		return sum, err
	}
	if len(rcpt.Tokens) == 0 && len(rcpt.Emails) == 0 {
		log.Debug("no recipients, skipping tick")
		return sum, nil
	}

	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		return sum, err
	}
	lands, err := e.store.LandNames(ctx)
	if err != nil {
		return sum, err
	}

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Checked++

		if t.Status == store.StatusCompleted {
			continue
		}
		dueAt, ok := e.res.DueAt(t.NextDate, t.TaskTime)
		if !ok {
			log.Debug("task has unresolvable schedule", logx.String("task", t.ID))
			continue
		}
		fire := e.eval.FireToday(now, dueAt)
		if len(fire) == 0 {
			continue
		}
		sum.Candidates++

		landName := lands[t.LandID]
		if landName == "" {
			landName = "Unknown"
		}
		dueDate := remind.NormalizeDate(t.NextDate)
		dueTime := e.res.NormalizedTime(t.TaskTime)

		for _, days := range fire {
			key := remind.DispatchKey(t.ID, dueDate, dueTime, days)

			seen, err := e.store.SeenDispatch(ctx, key)
			if err != nil {
				log.Error("dispatch log lookup failed", logx.String("task", t.ID), logx.Err(err))
				continue
			}
			if seen {
				sum.SkippedLogged++
				continue
			}

			p := e.res.BuildPayload(t.ID, t.ExpenseType, t.Category, landName,
				dueAt, days, now, e.cfg.TargetURL, e.cfg.IconURL)
			out := e.fanout.Dispatch(ctx, p, rcpt)

			sum.PushSent += out.PushSuccess
			sum.PushFailed += out.PushFailure
			if out.EmailSent {
				sum.EmailSent++
			}
			if out.EmailFailed {
				sum.EmailFailed++
			}
			if len(out.InvalidTokens) > 0 {
				sum.InvalidRemoved += e.registry.Cleanup(ctx, out.InvalidTokens)
			}

			if !out.Sendable() {
				// Nothing was delivered, so nothing is logged and the
				// next tick retries this offset.
				log.Warn("dispatch fully failed, will retry",
					logx.String("task", t.ID), logx.Int("days_before", days))
				continue
			}

			inserted, err := e.store.RecordDispatch(ctx, store.DispatchEntry{
				Key:         key,
				TaskID:      t.ID,
				TaskDate:    dueDate,
				TaskTime:    dueTime,
				DaysBefore:  days,
				SentAt:      now,
				Timezone:    e.cfg.Timezone,
				PushSuccess: out.PushSuccess,
				PushFailure: out.PushFailure,
				EmailSent:   out.EmailSent,
				AdminURL:    e.cfg.TargetURL,
			})
			if err != nil {
				log.Error("dispatch log write failed", logx.String("task", t.ID), logx.Err(err))
				continue
			}
			if inserted {
				sum.Triggered++
				log.Info("reminder dispatched",
					logx.String("task", t.ID),
					logx.Int("days_before", days),
					logx.Int("push_ok", out.PushSuccess),
					logx.Int("push_fail", out.PushFailure),
					logx.Bool("email", out.EmailSent))
			} else {
				// A concurrent tick won the insert race with the same
				// payload; the duplicate delivery is the accepted cost.
				sum.SkippedLogged++
			}
		}
	}

	if e.cfg.RetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -e.cfg.RetentionDays)
		pruned, err := e.store.PruneDispatchLog(ctx, cutoff, e.res.DateKey(now))
		if err != nil {
			log.Warn("dispatch log prune failed", logx.Err(err))
		} else {
			sum.Pruned = pruned
		}
	}

	log.Info("tick complete",
		logx.Int("checked", sum.Checked),
		logx.Int("candidates", sum.Candidates),
		logx.Int("triggered", sum.Triggered),
		logx.Int("skipped_logged", sum.SkippedLogged),
		logx.Int64("pruned", sum.Pruned))
	return sum, nil
}
