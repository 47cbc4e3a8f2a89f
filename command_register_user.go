package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Input      RegistrationInput
	UseHashid  bool
	OnResponse func(user *User)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates an inactive account and mails the
// activation link. The new user is not logged in.
type RegisterUserHandler struct {
	repo RepositoryManager
	handlerDeps
}

func NewRegisterUserHandler(repo RepositoryManager, opts ...HandlerOption) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:        repo,
		handlerDeps: newHandlerDeps(opts...),
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "context cancelled during user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	var user *User
	var token string

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().CreateUserTx(ctx, tx, event.Input, WithHashid(event.UseHashid))
		if err != nil {
			return err
		}

		token, err = NewToken()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create activation token")
		}

		digest, err := h.hasher.Hash(token)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash activation token")
		}

		if err := h.repo.Users().SetActivationDigestTx(ctx, tx, user.ID, &digest); err != nil {
			return err
		}
		user.ActivationDigest = &digest
		return nil
	})

	if err != nil {
		return surfaceError(err, "user registration transaction failed")
	}

	if err := h.notifier.SendActivation(ctx, user, token); err != nil {
		h.logger.Error("failed to send activation email", "user_id", user.ID.String(), "error", err)
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType:  ActivityEventUserRegistered,
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
