package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"pinefarm/internal/config"
	"pinefarm/internal/remind"
	"pinefarm/pkg/logx"
)

// Mailer is the SMTP boundary. One reminder produces one digest message
// addressed to the whole admin recipient set.
type Mailer interface {
	Send(ctx context.Context, subject, text, html string, recipients []string) error
}

type EmailChannel struct {
	mailer Mailer
	log    logx.Logger
}

func NewEmailChannel(mailer Mailer, log logx.Logger) *EmailChannel {
	if mailer == nil {
		return nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &EmailChannel{mailer: mailer, log: log}
}

func (c *EmailChannel) Name() string { return ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, p remind.Payload, rcpt Recipients) (Result, error) {
	if len(rcpt.Emails) == 0 {
		return Result{Skipped: true}, nil
	}

	text := strings.Join([]string{
		p.Title,
		p.WhenText,
		"Land: " + p.LandName,
		"Task: " + p.TaskName,
		"When: " + p.DueText,
		"Open admin tasks: " + p.TargetURL,
	}, "\n")

	html := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
  <h2 style="margin: 0 0 12px;">%s</h2>
  <p style="margin: 0 0 10px;">%s</p>
  <p style="margin: 0 0 6px;"><strong>Land:</strong> %s</p>
  <p style="margin: 0 0 6px;"><strong>Task:</strong> %s</p>
  <p style="margin: 0 0 14px;"><strong>When:</strong> %s</p>
  <p style="margin: 0;">Open admin tasks: <a href="%s">%s</a></p>
</div>`, p.Title, p.WhenText, p.LandName, p.TaskName, p.DueText, p.TargetURL, p.TargetURL)

	if err := c.mailer.Send(ctx, p.Subject, text, html, rcpt.Emails); err != nil {
		return Result{Failure: 1}, err
	}
	return Result{Success: 1}, nil
}

// SMTPMailer sends through a standard mail relay via go-mail.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer returns (nil, nil) when the transport is not
// configured; the email channel is then disabled, which is a valid
// state and not an error.
func NewSMTPMailer(cfg *config.EmailConfig) (*SMTPMailer, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// Send addresses the message to the sender and blind-copies the admin
// recipient set so addresses aren't leaked between admins.
func (m *SMTPMailer) Send(ctx context.Context, subject, text, html string, recipients []string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(m.from); err != nil {
		return err
	}
	if err := msg.Bcc(recipients...); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return m.client.DialAndSendWithContext(ctx, msg)
}
