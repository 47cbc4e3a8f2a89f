// Package smtp delivers account emails through an SMTP relay.
package smtp

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	auth "github.com/goliatone/go-session-auth"
	"gopkg.in/gomail.v2"
)

// Sender is the part of gomail.Dialer the notifier uses
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

// Notifier mails activation and password reset links
type Notifier struct {
	sender  Sender
	from    string
	baseURL string
	async   bool
	logger  auth.Logger
}

var _ auth.Notifier = (*Notifier)(nil)

type Option func(*Notifier)

// WithAsync sends in a goroutine, failures are only logged
func WithAsync(async bool) Option {
	return func(n *Notifier) {
		n.async = async
	}
}

func WithLogger(logger auth.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSender replaces the SMTP dialer
func WithSender(s Sender) Option {
	return func(n *Notifier) {
		if s != nil {
			n.sender = s
		}
	}
}

func New(cfg Config, opts ...Option) *Notifier {
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	from := cfg.From
	if from == "" {
		from = "noreply@example.com"
	}

	n := &Notifier{
		sender:  gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:    from,
		baseURL: cfg.BaseURL,
		logger:  auth.NewSlogLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

var activationTpl = template.Must(template.New("activation").Parse(
	`<h1>Hi {{.Name}},</h1>
<p>Welcome! Click on the link below to activate your account:</p>
<p><a href="{{.Link}}">Activate</a></p>`))

var resetTpl = template.Must(template.New("reset").Parse(
	`<h1>Password reset</h1>
<p>To reset your password click the link below:</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>This link will expire in two hours.</p>
<p>If you did not request your password to be reset, please ignore this email and your password will stay as it is.</p>`))

func (n *Notifier) SendActivation(ctx context.Context, user *auth.User, token string) error {
	link := auth.ActivationURL(n.baseURL, token, user.Email)
	return n.send(ctx, user, "Account activation", activationTpl, link)
}

func (n *Notifier) SendPasswordReset(ctx context.Context, user *auth.User, token string) error {
	link := auth.PasswordResetURL(n.baseURL, token, user.Email)
	return n.send(ctx, user, "Password reset", resetTpl, link)
}

func (n *Notifier) send(ctx context.Context, user *auth.User, subject string, tpl *template.Template, link string) error {
	var body strings.Builder
	if err := tpl.Execute(&body, map[string]string{"Name": user.Name, "Link": link}); err != nil {
		return fmt.Errorf("render %s email: %w", subject, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\n%s\n", subject, link))
	m.AddAlternative("text/html", body.String())

	if !n.async {
		return n.deliver(ctx, m, user.Email)
	}

	go n.deliver(context.WithoutCancel(ctx), m, user.Email)
	return nil
}

func (n *Notifier) deliver(ctx context.Context, m *gomail.Message, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.sender.DialAndSend(m); err != nil {
		n.logger.Error("could not send email", "to", to, "error", err)
		return err
	}

	n.logger.Debug("email sent", "to", to)
	return nil
}
