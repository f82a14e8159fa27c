package notify

import (
	"context"

	"pinefarm/internal/remind"
	"pinefarm/pkg/logx"
)

// Outcome aggregates all channel results for one dispatch attempt.
type Outcome struct {
	Results       []Result
	PushSuccess   int
	PushFailure   int
	EmailSent     bool
	EmailFailed   bool
	InvalidTokens []string
}

// Sendable reports whether the dispatch may be recorded in the
// idempotency log: at least one channel delivered to someone. A fully
// failed attempt stays unlogged so the next tick retries it.
func (o Outcome) Sendable() bool {
	for _, r := range o.Results {
		if r.Success > 0 {
			return true
		}
	}
	return false
}

type Fanout struct {
	channels []Channel
	log      logx.Logger
}

func NewFanout(log logx.Logger, channels ...Channel) *Fanout {
	if log.IsZero() {
		log = logx.Nop()
	}
	active := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			active = append(active, c)
		}
	}
	return &Fanout{channels: active, log: log}
}

func (f *Fanout) Channels() int { return len(f.channels) }

// Dispatch runs every channel to completion. Channel errors are logged
// and folded into the outcome; they are never fatal to the tick.
func (f *Fanout) Dispatch(ctx context.Context, p remind.Payload, rcpt Recipients) Outcome {
	var out Outcome
	for _, ch := range f.channels {
		res, err := ch.Send(ctx, p, rcpt)
		if err != nil {
			f.log.Warn("channel send failed",
				logx.String("channel", ch.Name()),
				logx.String("task", p.TaskID),
				logx.Err(err))
		}
		res.Channel = ch.Name()
		out.Results = append(out.Results, res)
		out.InvalidTokens = append(out.InvalidTokens, res.InvalidTokens...)

		switch ch.Name() {
		case ChannelPush:
			out.PushSuccess += res.Success
			out.PushFailure += res.Failure
		case ChannelEmail:
			if res.Success > 0 {
				out.EmailSent = true
			} else if !res.Skipped {
				out.EmailFailed = true
			}
		}
	}
	return out
}

const (
	ChannelPush     = "push"
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)
