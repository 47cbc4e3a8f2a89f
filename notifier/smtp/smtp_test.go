package smtp_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/notifier/smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	err  error
	sent chan *gomail.Message
}

func newFakeSender(err error) *fakeSender {
	return &fakeSender{err: err, sent: make(chan *gomail.Message, 4)}
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	for _, msg := range m {
		f.sent <- msg
	}
	return f.err
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newNotifier(sender smtp.Sender, opts ...smtp.Option) *smtp.Notifier {
	cfg := smtp.Config{
		Host:    "localhost",
		From:    "noreply@sample.app",
		BaseURL: "http://localhost:3000",
	}
	opts = append([]smtp.Option{smtp.WithSender(sender), smtp.WithLogger(nopLogger{})}, opts...)
	return smtp.New(cfg, opts...)
}

func TestSendActivation(t *testing.T) {
	sender := newFakeSender(nil)
	notifier := newNotifier(sender)
	user := &auth.User{Name: "Michael", Email: "michael@example.com"}

	require.NoError(t, notifier.SendActivation(context.Background(), user, "token"))

	msg := <-sender.sent
	assert.Equal(t, []string{"noreply@sample.app"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"michael@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Account activation"}, msg.GetHeader("Subject"))

	raw := &bytes.Buffer{}
	_, err := msg.WriteTo(raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Hi Michael,")
}

func TestSendPasswordResetError(t *testing.T) {
	boom := errors.New("relay down")
	notifier := newNotifier(newFakeSender(boom))
	user := &auth.User{Name: "Michael", Email: "michael@example.com"}

	err := notifier.SendPasswordReset(context.Background(), user, "token")
	assert.ErrorIs(t, err, boom)
}

func TestSendCancelledContext(t *testing.T) {
	sender := newFakeSender(nil)
	notifier := newNotifier(sender)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := notifier.SendActivation(ctx, &auth.User{Email: "michael@example.com"}, "token")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestSendAsync(t *testing.T) {
	sender := newFakeSender(errors.New("relay down"))
	notifier := newNotifier(sender, smtp.WithAsync(true))
	ctx, cancel := context.WithCancel(context.Background())

	err := notifier.SendPasswordReset(ctx, &auth.User{Email: "michael@example.com"}, "token")
	cancel()
	assert.NoError(t, err, "async delivery only logs failures")

	select {
	case msg := <-sender.sent:
		assert.Equal(t, []string{"Password reset"}, msg.GetHeader("Subject"))
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}
