package notify

import (
	"context"
	"errors"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"pinefarm/internal/config"
)

// FCMSender delivers push messages through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender returns (nil, nil) when the push block is absent or
// disabled; push is then simply not a channel.
func NewFCMSender(ctx context.Context, cfg *config.PushConfig) (*FCMSender, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("push.project_id is required when push is enabled")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, msg PushMessage, tokens []string) (PushResult, error) {
	wn := &messaging.WebpushNotification{
		Tag:      msg.Tag,
		Renotify: true,
	}
	if msg.Icon != "" {
		wn.Icon = msg.Icon
		wn.Badge = msg.Icon
	}
	webpush := &messaging.WebpushConfig{Notification: wn}
	if msg.Link != "" {
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: msg.Link}
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    msg.Data,
		Webpush: webpush,
	})
	if err != nil {
		return PushResult{}, err
	}

	out := PushResult{Success: resp.SuccessCount, Failure: resp.FailureCount}
	for i, r := range resp.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		// Dead registrations get cleaned up; anything else is left for
		// the unlogged-dispatch retry on the next tick.
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			out.Invalid = append(out.Invalid, tokens[i])
		}
	}
	return out, nil
}
