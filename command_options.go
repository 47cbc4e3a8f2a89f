package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultResetExpiration is how long a password reset link is valid
const DefaultResetExpiration = "2h"

const commandTimeout = time.Second * 10

type handlerDeps struct {
	hasher          PasswordHasher
	notifier        Notifier
	logger          Logger
	activity        ActivitySink
	now             func() time.Time
	resetExpiration string
}

// HandlerOption configures the command handlers
type HandlerOption func(*handlerDeps)

func WithHasher(h PasswordHasher) HandlerOption {
	return func(d *handlerDeps) {
		if h != nil {
			d.hasher = h
		}
	}
}

func WithNotifier(n Notifier) HandlerOption {
	return func(d *handlerDeps) {
		if n != nil {
			d.notifier = n
		}
	}
}

func WithLogger(l Logger) HandlerOption {
	return func(d *handlerDeps) {
		d.logger = resolveLogger(l)
	}
}

func WithActivitySink(s ActivitySink) HandlerOption {
	return func(d *handlerDeps) {
		d.activity = normalizeActivitySink(s)
	}
}

func WithClock(now func() time.Time) HandlerOption {
	return func(d *handlerDeps) {
		if now != nil {
			d.now = now
		}
	}
}

// WithResetExpiration sets the reset window as a duration pattern, "2h"
func WithResetExpiration(pattern string) HandlerOption {
	return func(d *handlerDeps) {
		if pattern != "" {
			d.resetExpiration = pattern
		}
	}
}

func newHandlerDeps(opts ...HandlerOption) handlerDeps {
	d := handlerDeps{
		hasher:          NewBcryptHasher(0),
		notifier:        NewLogNotifier(""),
		logger:          defLogger{},
		activity:        discardSink{},
		now:             time.Now,
		resetExpiration: DefaultResetExpiration,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

// surfaceError keeps field errors and rich errors as they are and
// wraps anything else as an internal failure.
func surfaceError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if IsValidationError(err) {
		return err
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func cancelled(ctx interface{ Err() error }, msg string) error {
	return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, msg)
}
