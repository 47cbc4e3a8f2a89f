package auth

import (
	"context"

	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Email      string
	Token      string
	Session    SessionLogin
	OnResponse func(user *User)
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

// ActivateAccountHandler consumes an emailed activation token
type ActivateAccountHandler struct {
	repo RepositoryManager
	handlerDeps
}

func NewActivateAccountHandler(repo RepositoryManager, opts ...HandlerOption) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:        repo,
		handlerDeps: newHandlerDeps(opts...),
	}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "context cancelled during account activation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	var user *User

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if IsNotFound(err) {
				return ErrInvalidActivationLink
			}
			return err
		}

		if user.Activated || !h.hasher.Verify(user.ActivationDigest, event.Token) {
			return ErrInvalidActivationLink
		}

		now := h.now()
		if err := h.repo.Users().MarkActivatedTx(ctx, tx, user.ID, now); err != nil {
			return err
		}

		user.Activated = true
		user.ActivatedAt = &now
		user.ActivationDigest = nil
		return nil
	})

	if err != nil {
		return surfaceError(err, "account activation transaction failed")
	}

	if event.Session != nil {
		if err := event.Session.LogIn(ctx, user); err != nil {
			return surfaceError(err, "failed to log in activated user")
		}
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType:  ActivityEventUserActivated,
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
