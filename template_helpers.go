package auth

import (
	"context"
)

// Keys of the map returned by TemplateHelpers
var (
	TemplateUserKey     = "current_user"
	TemplateLoggedInKey = "logged_in"
	TemplateAdminKey    = "is_admin"
	TemplateUserPathKey = "user_path"
	TemplateCSRFKey     = "csrf_token"
)

// TemplateHelpers describes the visitor behind rs so a layout can pick
// between the login link and the account menu.
//
// Usage:
//
//	data, err := auth.TemplateHelpers(ctx.Context(), rs, csrf.TokenFromContext(ctx))
//	// {% if logged_in %}<a href="{{ user_path }}">{{ current_user.name }}</a>{% endif %}
//
// An anonymous visitor gets a nil current_user and an empty user_path.
func TemplateHelpers(ctx context.Context, rs *RequestSession, csrfToken string) (map[string]any, error) {
	data := map[string]any{
		TemplateUserKey:     nil,
		TemplateLoggedInKey: false,
		TemplateAdminKey:    false,
		TemplateUserPathKey: "",
	}

	if csrfToken != "" {
		data[TemplateCSRFKey] = csrfToken
	}

	if rs == nil {
		return data, nil
	}

	user, err := rs.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return data, nil
	}

	data[TemplateUserKey] = user
	data[TemplateLoggedInKey] = true
	data[TemplateAdminKey] = IsAdmin(user)
	data[TemplateUserPathKey] = UserPath(user)

	return data, nil
}
