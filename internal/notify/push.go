package notify

import (
	"context"
	"strconv"

	"golang.org/x/time/rate"

	"pinefarm/internal/remind"
	"pinefarm/pkg/logx"
)

// FCM caps multicast calls at 500 tokens.
const pushChunkSize = 500

// PushMessage is the transport-neutral shape of one push send.
type PushMessage struct {
	Title string
	Body  string
	Tag   string
	Link  string
	Icon  string
	Data  map[string]string
}

type PushResult struct {
	Success int
	Failure int
	// Invalid holds tokens the provider reported as unregistered or
	// malformed; everything else is treated as transient.
	Invalid []string
}

// PushSender is the provider boundary (FCM in production, a fake in
// tests). One call covers at most one chunk of tokens.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage, tokens []string) (PushResult, error)
}

type PushChannel struct {
	sender  PushSender
	limiter *rate.Limiter
	log     logx.Logger
}

func NewPushChannel(sender PushSender, ratePerSec int, log logx.Logger) *PushChannel {
	if sender == nil {
		return nil
	}
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PushChannel{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
	}
}

func (c *PushChannel) Name() string { return ChannelPush }

// Send delivers to every token in provider-sized chunks. A chunk whose
// call errors entirely counts all its tokens as transient failures;
// per-token outcomes come from the provider response.
func (c *PushChannel) Send(ctx context.Context, p remind.Payload, rcpt Recipients) (Result, error) {
	if len(rcpt.Tokens) == 0 {
		return Result{Skipped: true}, nil
	}

	msg := PushMessage{
		Title: p.Title,
		Body:  p.Body,
		Tag:   p.Tag(),
		Link:  p.TargetURL,
		Icon:  p.IconURL,
		Data: map[string]string{
			"url":        p.TargetURL,
			"taskId":     p.TaskID,
			"daysBefore": strconv.Itoa(p.DaysBefore),
			"dueDate":    p.DueDate,
			"dueTime":    p.DueTime,
			"title":      p.Title,
			"body":       p.Body,
			"tag":        p.Tag(),
		},
	}

	var (
		res     Result
		lastErr error
	)
	for start := 0; start < len(rcpt.Tokens); start += pushChunkSize {
		end := start + pushChunkSize
		if end > len(rcpt.Tokens) {
			end = len(rcpt.Tokens)
		}
		chunk := rcpt.Tokens[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			res.Failure += len(rcpt.Tokens) - start
			return res, err
		}

		pr, err := c.sender.Send(ctx, msg, chunk)
		if err != nil {
			res.Failure += len(chunk)
			lastErr = err
			continue
		}
		res.Success += pr.Success
		res.Failure += pr.Failure
		res.InvalidTokens = append(res.InvalidTokens, pr.Invalid...)
	}
	return res, lastErr
}
