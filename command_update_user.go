package auth

import (
	"context"

	"github.com/uptrace/bun"
)

type UpdateUserMessage struct {
	User       *User
	Input      ProfileUpdateInput
	OnResponse func(user *User)
}

func (e UpdateUserMessage) Type() string { return "user.update" }

// UpdateUserHandler applies a self service profile update
type UpdateUserHandler struct {
	repo RepositoryManager
	handlerDeps
}

func NewUpdateUserHandler(repo RepositoryManager, opts ...HandlerOption) *UpdateUserHandler {
	return &UpdateUserHandler{
		repo:        repo,
		handlerDeps: newHandlerDeps(opts...),
	}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) error {
	select {
	case <-ctx.Done():
		return cancelled(ctx, "context cancelled during user update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) error {
	var updated *User

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = h.repo.Users().UpdateUserTx(ctx, tx, event.User, event.Input)
		return err
	})

	if err != nil {
		return surfaceError(err, "user update transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType:  ActivityEventUserUpdated,
		UserID:     updated.ID.String(),
		OccurredAt: h.now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}
