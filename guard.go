package auth

import "context"

// IsLoggedIn reports whether current is an authenticated user
func IsLoggedIn(current *User) bool {
	return current != nil
}

// IsSelf compares by id, nil never matches
func IsSelf(user, target *User) bool {
	if user == nil || target == nil {
		return false
	}
	return user.ID == target.ID
}

func IsAdmin(current *User) bool {
	return current != nil && current.Admin
}

// RequireLogin denies anonymous requests. The attempted url is kept
// so login can send the user back to it.
func RequireLogin(ctx context.Context, rs *RequestSession, method, url string) (*User, error) {
	current, err := rs.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	if IsLoggedIn(current) {
		return current, nil
	}

	if err := rs.StoreLocation(ctx, method, url); err != nil {
		return nil, err
	}
	return nil, ErrLoginRequired
}

// RequireSelfOrAdmin lets the user itself or an admin through
func RequireSelfOrAdmin(ctx context.Context, rs *RequestSession, target *User) error {
	current, err := rs.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if IsSelf(current, target) || IsAdmin(current) {
		return nil
	}
	return ErrNotAuthorized
}

// RequireSelf only lets the user itself through, silently
func RequireSelf(ctx context.Context, rs *RequestSession, target *User) error {
	current, err := rs.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if IsSelf(current, target) {
		return nil
	}
	return ErrNotCorrectUser
}

// RequireAdmin only lets admins through, silently
func RequireAdmin(ctx context.Context, rs *RequestSession) error {
	current, err := rs.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if IsAdmin(current) {
		return nil
	}
	return ErrAdminRequired
}
