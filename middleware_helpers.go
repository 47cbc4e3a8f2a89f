package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// TargetFinder loads the user a route operates on
type TargetFinder interface {
	FindByID(ctx context.Context, id string) (*User, error)
}

// LoggedIn denies anonymous requests with a redirect to the login
// page. The current user is added to the request context.
func LoggedIn(logger Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			rs, err := requestSession(ctx)
			if err != nil {
				return HandleError(ctx, err, logger)
			}

			current, err := RequireLogin(ctx.Context(), rs, ctx.Method(), ctx.OriginalURL())
			if err != nil {
				return HandleError(ctx, err, logger)
			}

			ctx.SetContext(WithContext(ctx.Context(), current))
			return next(ctx)
		}
	}
}

// AuthorizedUser lets the target user or an admin through
func AuthorizedUser(users TargetFinder, logger Logger) router.MiddlewareFunc {
	return targetGuard(users, logger, RequireSelfOrAdmin)
}

// CorrectUser only lets the target user through
func CorrectUser(users TargetFinder, logger Logger) router.MiddlewareFunc {
	return targetGuard(users, logger, RequireSelf)
}

// AdminOnly denies non admin users without a notice
func AdminOnly(logger Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			rs, err := requestSession(ctx)
			if err != nil {
				return HandleError(ctx, err, logger)
			}

			if err := RequireAdmin(ctx.Context(), rs); err != nil {
				return HandleError(ctx, err, logger)
			}
			return next(ctx)
		}
	}
}

type targetCheck func(ctx context.Context, rs *RequestSession, target *User) error

// targetGuard loads the user named by the :id param into locals
// before running check against it.
func targetGuard(users TargetFinder, logger Logger, check targetCheck) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			rs, err := requestSession(ctx)
			if err != nil {
				return HandleError(ctx, err, logger)
			}

			target, err := loadTarget(ctx, users)
			if err != nil {
				return HandleError(ctx, err, logger)
			}

			if err := check(ctx.Context(), rs, target); err != nil {
				return HandleError(ctx, err, logger)
			}

			ctx.Locals(LocalsTargetUserKey, target)
			return next(ctx)
		}
	}
}

func loadTarget(ctx router.Context, users TargetFinder) (*User, error) {
	if target, ok := GetTargetUser(ctx); ok {
		return target, nil
	}

	target, err := users.FindByID(ctx.Context(), ctx.Param("id"))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return target, nil
}

// Chain composes middleware so the first one runs first
func Chain(mws ...router.MiddlewareFunc) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}
