package auth

import (
	"context"
	"sync"
)

// UserFinder is the store lookup login needs
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Authenticator checks email and password credentials
type Authenticator struct {
	store    UserFinder
	hasher   PasswordHasher
	logger   Logger
	activity ActivitySink

	dummyOnce   sync.Once
	dummyDigest *string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store UserFinder, hasher PasswordHasher) *Authenticator {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &Authenticator{
		store:    store,
		hasher:   hasher,
		logger:   defLogger{},
		activity: discardSink{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	a.logger = resolveLogger(logger)
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	a.activity = normalizeActivitySink(sink)
	return a
}

// Authenticate returns the user owning email when password matches.
// Unknown emails and wrong passwords fail the same way. The activation
// check only happens after the password matched.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := a.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !IsNotFound(err) {
			return nil, surfaceError(err, "failed to retrieve user during login")
		}
		// keep the timing of unknown emails close to a real compare
		a.hasher.Verify(a.dummy(), password)
		a.failure(ctx, email, "", ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Verify(&user.PasswordHash, password) {
		a.failure(ctx, email, user.ID.String(), ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.Activated {
		a.failure(ctx, email, user.ID.String(), ErrAccountNotActivated)
		return nil, ErrAccountNotActivated
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
	})

	return user, nil
}

func (a *Authenticator) failure(ctx context.Context, email, userID string, err error) {
	a.logger.Info("login failed", "email", email, "reason", NoticeFromError(err))
	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		UserID:    userID,
		Metadata: map[string]any{
			"email": email,
		},
	})
}

func (a *Authenticator) dummy() *string {
	a.dummyOnce.Do(func() {
		if d, err := a.hasher.Hash("not-a-real-password"); err == nil {
			a.dummyDigest = &d
		}
	})
	return a.dummyDigest
}
