package auth

import (
	"bytes"
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// Notice levels, mirrored in the flash message
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelDanger  = "danger"
)

// LocalsSessionIDKey exposes the session id to middleware that keys
// state by session, e.g. csrf.
const LocalsSessionIDKey = "session_id"

// Response is the JSON envelope of every route in this package
type Response struct {
	Notice   string            `json:"notice,omitempty"`
	Level    string            `json:"level,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
	User     *User             `json:"user,omitempty"`
	Users    []*User           `json:"users,omitempty"`
	Page     int               `json:"page,omitempty"`
	Total    int               `json:"total,omitempty"`
}

// SessionMiddleware starts a RequestSession for every request and
// makes it available through locals and the request context.
func SessionMiddleware(manager *SessionManager) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			rs := manager.Begin(ctx)
			ctx.Locals(LocalsSessionKey, rs)
			if sid := rs.ID(); sid != "" {
				ctx.Locals(LocalsSessionIDKey, sid)
			}
			ctx.SetContext(WithRequestSession(ctx.Context(), rs))
			return next(ctx)
		}
	}
}

// UserPath is the canonical location of a user resource
func UserPath(user *User) string {
	return "/users/" + user.ID.String()
}

// decodeStrict decodes a JSON body rejecting fields the target
// struct does not declare.
func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "Malformed request body").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("BAD_REQUEST")
	}
	return nil
}

func requestSession(ctx router.Context) (*RequestSession, error) {
	rs, ok := GetRequestSession(ctx)
	if !ok {
		return nil, ErrSessionMissing
	}
	return rs, nil
}

// redirectTo answers with 303 See Other. The notice is also set as a
// flash message for clients that follow the redirect.
func redirectTo(ctx router.Context, path, level, notice string) error {
	if notice != "" {
		data := router.ViewContext{
			"notice": notice,
			"level":  level,
		}
		if level == LevelDanger {
			flash.WithError(ctx, data)
		} else {
			flash.WithSuccess(ctx, data)
		}
	}

	ctx.SetHeader("Location", path)
	return ctx.JSON(http.StatusSeeOther, Response{
		Notice:   notice,
		Level:    level,
		Redirect: path,
	})
}

// HandleError turns an operation error into a response. Field errors
// are 422, denials carrying a redirect are 303, anything unexpected
// is logged and reported as 500.
func HandleError(ctx router.Context, err error, logger Logger) error {
	logger = resolveLogger(logger)

	if fields, ok := ValidationErrors(err); ok {
		return ctx.JSON(http.StatusUnprocessableEntity, Response{
			Level:  LevelDanger,
			Errors: fields,
		})
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if path, ok := RedirectFromError(richErr); ok {
		logger.Info("request denied",
			"text_code", richErr.TextCode,
			"path", ctx.OriginalURL(),
			"redirect", path,
		)
		return redirectTo(ctx, path, LevelDanger, richErr.Message)
	}

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"error", err,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		return ctx.JSON(status, Response{
			Level:  LevelDanger,
			Notice: "An unexpected server error occurred",
		})
	}

	return ctx.JSON(status, Response{
		Level:  LevelDanger,
		Notice: richErr.Message,
	})
}

func statusForCategory(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
