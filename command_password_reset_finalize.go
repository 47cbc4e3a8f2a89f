package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Email      string
	Token      string
	Input      PasswordResetInput
	Session    SessionLogin
	OnResponse func(user *User)
}

func (e FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

// FinalizePasswordResetHandler checks reset access and stores the new
// password. A rejected password leaves the reset pending.
type FinalizePasswordResetHandler struct {
	repo RepositoryManager
	handlerDeps
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, opts ...HandlerOption) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:        repo,
		handlerDeps: newHandlerDeps(opts...),
	}
}

// ValidateResetAccess returns the user when it exists, is activated
// and token matches its reset digest.
func (h *FinalizePasswordResetHandler) ValidateResetAccess(ctx context.Context, email, token string) (*User, error) {
	return h.validateAccess(ctx, h.repo.Users().GetByEmail, email, token)
}

func (h *FinalizePasswordResetHandler) validateAccess(ctx context.Context, lookup func(context.Context, string) (*User, error), email, token string) (*User, error) {
	user, err := lookup(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrResetTokenInvalid
		}
		return nil, surfaceError(err, "failed to retrieve user for password reset")
	}

	if !user.Activated || !h.hasher.Verify(user.ResetDigest, token) {
		return nil, ErrResetTokenInvalid
	}

	return user, nil
}

// CheckExpiration fails once the reset window has passed
func (h *FinalizePasswordResetHandler) CheckExpiration(user *User) error {
	expired, err := ResetExpired(user.ResetSentAt, h.resetExpiration, h.now())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token expiration period")
	}

	if expired {
		return ErrResetTokenExpired
	}
	return nil
}

// Authorize runs both access checks, the way the edit form does
func (h *FinalizePasswordResetHandler) Authorize(ctx context.Context, email, token string) (*User, error) {
	user, err := h.ValidateResetAccess(ctx, email, token)
	if err != nil {
		return nil, err
	}
	if err := h.CheckExpiration(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "context cancelled during password reset finalization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	var user *User

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		lookup := func(ctx context.Context, email string) (*User, error) {
			return h.repo.Users().GetByEmailTx(ctx, tx, email)
		}

		var err error
		user, err = h.validateAccess(ctx, lookup, event.Email, event.Token)
		if err != nil {
			return err
		}

		if err := h.CheckExpiration(user); err != nil {
			return err
		}

		return h.repo.Users().ChangePasswordTx(ctx, tx, user, event.Input)
	})

	if err != nil {
		return surfaceError(err, "failed to finalize password reset")
	}

	if event.Session != nil {
		if err := event.Session.LogIn(ctx, user); err != nil {
			return surfaceError(err, "failed to log in after password reset")
		}
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType:  ActivityEventPasswordResetSuccess,
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
