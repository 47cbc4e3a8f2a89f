package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(user *User)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetHandler issues a reset token, replacing any
// pending one, and mails it.
type InitializePasswordResetHandler struct {
	repo RepositoryManager
	handlerDeps
}

func NewInitializePasswordResetHandler(repo RepositoryManager, opts ...HandlerOption) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:        repo,
		handlerDeps: newHandlerDeps(opts...),
	}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "context cancelled during password reset initialization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	var user *User
	var token string

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if IsNotFound(err) {
				return ErrEmailNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		token, err = NewToken()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create reset token")
		}

		digest, err := h.hasher.Hash(token)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash reset token")
		}

		sentAt := h.now()
		if err := h.repo.Users().SetResetDigestTx(ctx, tx, user.ID, &digest, &sentAt); err != nil {
			return err
		}

		user.ResetDigest = &digest
		user.ResetSentAt = &sentAt
		return nil
	})

	if err != nil {
		return surfaceError(err, "failed to initialize password reset")
	}

	if err := h.notifier.SendPasswordReset(ctx, user, token); err != nil {
		h.logger.Error("failed to send password reset email", "user_id", user.ID.String(), "error", err)
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType:  ActivityEventPasswordResetRequested,
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
