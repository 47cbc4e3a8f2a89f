package auth

import (
	"context"
	"net/http"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session-auth/middleware/csrf"
)

// Notices shown by the auth routes
const (
	NoticeSignupCheckEmail = "Please check your email to activate your account."
	NoticeSignupFailed     = "An error occurred during sign up. Please check your information."
	NoticeActivated        = "Account activated!"
	NoticeResetEmailSent   = "Email sent with password reset instructions"
	NoticePasswordReset    = "Password has been reset."
)

// CredentialsAuthenticator checks a login attempt
type CredentialsAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Signup, controller.SignupCreate).
		SetName("signup.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("login.post")

	app.Get(controller.Routes.Session, controller.SessionShow).
		SetName("session.get")

	app.Delete(controller.Routes.Logout, controller.LogOut).
		SetName("logout.delete")
	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("logout.get")

	app.Get(controller.Routes.AccountActivations+"/:token/edit", controller.AccountActivationEdit).
		SetName("account-activation.edit")

	app.Post(controller.Routes.PasswordResets, controller.PasswordResetCreate).
		SetName("pwd-reset.post")
	app.Get(controller.Routes.PasswordResets+"/:token/edit", controller.PasswordResetEdit).
		SetName("pwd-reset.edit")
	app.Patch(controller.Routes.PasswordResets+"/:token", controller.PasswordResetUpdate).
		SetName("pwd-reset.patch")
	app.Post(controller.Routes.PasswordResets+"/:token", controller.PasswordResetUpdate).
		SetName("pwd-reset-do.post")

	return controller
}

type AuthControllerRoutes struct {
	Signup             string
	Login              string
	Logout             string
	Session            string
	AccountActivations string
	PasswordResets     string
}

type AuthController struct {
	Debug          bool
	Logger         Logger
	Repo           RepositoryManager
	Routes         *AuthControllerRoutes
	Auther         CredentialsAuthenticator
	HandlerOptions []HandlerOption
	ErrorHandler   router.ErrorHandler

	register      *RegisterUserHandler
	activate      *ActivateAccountHandler
	resetInit     *InitializePasswordResetHandler
	resetFinalize *FinalizePasswordResetHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Signup:             "/signup",
			Login:              "/login",
			Logout:             "/logout",
			Session:            "/session",
			AccountActivations: "/account_activations",
			PasswordResets:     "/password_resets",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing CredentialsAuthenticator in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = func(ctx router.Context, err error) error {
			return HandleError(ctx, err, c.Logger)
		}
	}

	handlerOpts := append([]HandlerOption{WithLogger(c.Logger)}, c.HandlerOptions...)
	c.register = NewRegisterUserHandler(c.Repo, handlerOpts...)
	c.activate = NewActivateAccountHandler(c.Repo, handlerOpts...)
	c.resetInit = NewInitializePasswordResetHandler(c.Repo, handlerOpts...)
	c.resetFinalize = NewFinalizePasswordResetHandler(c.Repo, handlerOpts...)

	return c
}

func (a *AuthController) WithLogger(l Logger) *AuthController {
	a.Logger = resolveLogger(l)
	return a
}

// SignupCreate registers an inactive account and points the client
// at the welcome page.
func (a *AuthController) SignupCreate(ctx router.Context) error {
	input := RegistrationInput{}
	if err := decodeStrict(ctx.Body(), &input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.debugPayload("signup", map[string]any{
		"name":  input.Name,
		"email": input.Email,
		"age":   input.Age,
	})

	var user *User
	err := a.register.Execute(ctx.Context(), RegisterUserMessage{
		Input: input,
		OnResponse: func(u *User) {
			user = u
		},
	})

	if err != nil {
		if fields, ok := ValidationErrors(err); ok {
			return ctx.JSON(http.StatusUnprocessableEntity, Response{
				Notice: NoticeSignupFailed,
				Level:  LevelDanger,
				Errors: fields,
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, UserPath(user)+"/welcome", LevelInfo, NoticeSignupCheckEmail)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	input := LoginInput{}
	if err := decodeStrict(ctx.Body(), &input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.debugPayload("login", map[string]any{
		"email":       input.Email,
		"remember_me": input.RememberMe,
	})

	rs, err := requestSession(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Auther.Authenticate(ctx.Context(), input.Email, input.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := rs.LogIn(ctx.Context(), user); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if input.RememberMe {
		err = rs.Remember(ctx.Context(), user)
	} else {
		err = rs.Forget(ctx.Context(), user)
	}
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	target, err := rs.RedirectBackOr(ctx.Context(), UserPath(user))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, target, LevelSuccess, "Welcome back, "+user.Name+"!")
}

// SessionShow reports who the visitor is, along with the csrf token
// the client has to echo back on unsafe requests.
func (a *AuthController) SessionShow(ctx router.Context) error {
	rs, err := requestSession(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	data, err := TemplateHelpers(ctx.Context(), rs, csrf.TokenFromContext(ctx))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, data)
}

// LogOut is safe to call without a session
func (a *AuthController) LogOut(ctx router.Context) error {
	rs, err := requestSession(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := rs.LogOut(ctx.Context()); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, a.Routes.Login, "", "")
}

func (a *AuthController) AccountActivationEdit(ctx router.Context) error {
	rs, err := requestSession(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	var user *User
	err = a.activate.Execute(ctx.Context(), ActivateAccountMessage{
		Email:   ctx.Query("email", ""),
		Token:   ctx.Param("token"),
		Session: rs,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, UserPath(user), LevelSuccess, NoticeActivated)
}

func (a *AuthController) PasswordResetCreate(ctx router.Context) error {
	input := PasswordResetRequest{}
	if err := decodeStrict(ctx.Body(), &input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.debugPayload("password reset", input)

	err := a.resetInit.Execute(ctx.Context(), InitializePasswordResetMessage{
		Email: input.Email,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, a.Routes.Login, LevelInfo, NoticeResetEmailSent)
}

// PasswordResetEdit checks the emailed link before the client shows
// the new password form.
func (a *AuthController) PasswordResetEdit(ctx router.Context) error {
	user, err := a.resetFinalize.Authorize(ctx.Context(), ctx.Query("email", ""), ctx.Param("token"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, Response{User: user})
}

func (a *AuthController) PasswordResetUpdate(ctx router.Context) error {
	input := PasswordResetInput{}
	if err := decodeStrict(ctx.Body(), &input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	rs, err := requestSession(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	var user *User
	err = a.resetFinalize.Execute(ctx.Context(), FinalizePasswordResetMessage{
		Email:   ctx.Query("email", ""),
		Token:   ctx.Param("token"),
		Input:   input,
		Session: rs,
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return redirectTo(ctx, UserPath(user), LevelSuccess, NoticePasswordReset)
}

func (a *AuthController) debugPayload(name string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug("auth request payload", "route", name, "payload", print.MaybePrettyJSON(payload))
}
