package auth

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ActivationURL is the link mailed after signup
func ActivationURL(baseURL, token, email string) string {
	return accountLink(baseURL, "account_activations", token, email)
}

// PasswordResetURL is the link mailed after a reset request
func PasswordResetURL(baseURL, token, email string) string {
	return accountLink(baseURL, "password_resets", token, email)
}

func accountLink(baseURL, resource, token, email string) string {
	return fmt.Sprintf(
		"%s/%s/%s/edit?email=%s",
		strings.TrimRight(baseURL, "/"),
		resource,
		url.PathEscape(token),
		url.QueryEscape(email),
	)
}

// LogNotifier prints account links instead of mailing them, handy in
// development.
type LogNotifier struct {
	BaseURL string
	Out     io.Writer
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(baseURL string) *LogNotifier {
	return &LogNotifier{BaseURL: baseURL, Out: os.Stdout}
}

func (n *LogNotifier) SendActivation(_ context.Context, user *User, token string) error {
	n.print(user.Email, "Account activation", ActivationURL(n.BaseURL, token, user.Email))
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, user *User, token string) error {
	n.print(user.Email, "Password reset", PasswordResetURL(n.BaseURL, token, user.Email))
	return nil
}

func (n *LogNotifier) print(email, subject, link string) {
	out := n.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, "====== SENDING EMAIL NOTIFICATION =======")
	fmt.Fprintf(out, "to: %s\n", email)
	fmt.Fprintf(out, "subject: %s\n", subject)
	fmt.Fprintf(out, "link: %s\n", link)
}
