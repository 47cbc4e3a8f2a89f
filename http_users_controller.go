package auth

import (
	"time"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// UsersPerPage is the page size of the users listing
const UsersPerPage = 10

const (
	NoticeProfileUpdated = "Profile updated successfully"
	NoticeUserDeleted    = "User deleted"
)

func RegisterUserRoutes[T any](app router.Router[T], opts ...UsersControllerOption) *UsersController {
	controller := NewUsersController(opts...)
	users := controller.Repo.Users()
	logger := controller.Logger

	app.Get(controller.Routes.Users, controller.Index,
		LoggedIn(logger),
	).SetName("users.index")

	app.Get(controller.Routes.Users+"/:id", controller.Show,
		Chain(LoggedIn(logger), AuthorizedUser(users, logger)),
	).SetName("users.show")

	app.Get(controller.Routes.Users+"/:id/welcome", controller.Welcome).
		SetName("users.welcome")

	app.Patch(controller.Routes.Users+"/:id", controller.Update,
		Chain(LoggedIn(logger), CorrectUser(users, logger)),
	).SetName("users.update")

	app.Delete(controller.Routes.Users+"/:id", controller.Destroy,
		Chain(LoggedIn(logger), AdminOnly(logger)),
	).SetName("users.destroy")

	return controller
}

type UsersControllerRoutes struct {
	Users string
}

type UsersController struct {
	Debug          bool
	Logger         Logger
	Repo           RepositoryManager
	Routes         *UsersControllerRoutes
	Activity       ActivitySink
	HandlerOptions []HandlerOption
	ErrorHandler   router.ErrorHandler

	update *UpdateUserHandler
}

type UsersControllerOption func(*UsersController) *UsersController

func NewUsersController(opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger:   defLogger{},
		Activity: discardSink{},
		Routes: &UsersControllerRoutes{
			Users: "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = func(ctx router.Context, err error) error {
			return HandleError(ctx, err, c.Logger)
		}
	}

	c.Activity = normalizeActivitySink(c.Activity)
	handlerOpts := append([]HandlerOption{WithLogger(c.Logger), WithActivitySink(c.Activity)}, c.HandlerOptions...)
	c.update = NewUpdateUserHandler(c.Repo, handlerOpts...)

	return c
}

func (u *UsersController) WithLogger(l Logger) *UsersController {
	u.Logger = resolveLogger(l)
	return u
}

func (u *UsersController) Index(ctx router.Context) error {
	page := ctx.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	records, total, err := u.Repo.Users().ListUsers(ctx.Context(), page, UsersPerPage)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, Response{
		Users: records,
		Page:  page,
		Total: total,
	})
}

func (u *UsersController) Show(ctx router.Context) error {
	target, err := u.target(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, Response{User: target})
}

// Welcome is public, it is where signup sends new accounts
func (u *UsersController) Welcome(ctx router.Context) error {
	target, err := u.target(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, router.ViewContext{
		"user": router.ViewContext{
			"id":   target.ID,
			"name": target.Name,
		},
	})
}

func (u *UsersController) Update(ctx router.Context) error {
	target, err := u.target(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	input := ProfileUpdateInput{}
	if err := decodeStrict(ctx.Body(), &input); err != nil {
		return u.ErrorHandler(ctx, err)
	}

	if u.Debug {
		u.Logger.Debug("profile update", "user_id", target.ID.String(), "payload", print.MaybePrettyJSON(map[string]any{
			"name":            input.Name,
			"email":           input.Email,
			"change_password": input.Password != "",
		}))
	}

	var updated *User
	err = u.update.Execute(ctx.Context(), UpdateUserMessage{
		User:  target,
		Input: input,
		OnResponse: func(usr *User) {
			updated = usr
		},
	})
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, UserPath(updated), LevelSuccess, NoticeProfileUpdated)
}

func (u *UsersController) Destroy(ctx router.Context) error {
	target, err := u.target(ctx)
	if err != nil {
		return u.ErrorHandler(ctx, err)
	}

	if err := u.Repo.Users().DeleteUser(ctx.Context(), target.ID); err != nil {
		if IsNotFound(err) {
			return u.ErrorHandler(ctx, ErrUserNotFound)
		}
		return u.ErrorHandler(ctx, err)
	}

	actorID := ""
	if current, ok := FromContext(ctx.Context()); ok {
		actorID = current.ID.String()
	}

	recordActivity(ctx.Context(), u.Activity, u.Logger, ActivityEvent{
		EventType:  ActivityEventUserDeleted,
		ActorID:    actorID,
		UserID:     target.ID.String(),
		OccurredAt: time.Now(),
	})

	return redirectTo(ctx, u.Routes.Users, LevelSuccess, NoticeUserDeleted)
}

// target returns the user loaded by a guard, or loads it
func (u *UsersController) target(ctx router.Context) (*User, error) {
	return loadTarget(ctx, u.Repo.Users())
}
