package auth

import (
	"context"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Cookie names
const (
	DefaultSessionCookie = "_session_id"
	CookieUserID         = "user_id"
	CookieRememberToken  = "remember_token"
)

// PermanentCookieDuration is the lifetime of remember me cookies
const PermanentCookieDuration = 20 * 365 * 24 * time.Hour

// SessionManager ties the session store, the credential store and
// the remember me cookies together. It is shared, RequestSession is
// per request.
type SessionManager struct {
	users         Users
	store         SessionStore
	hasher        PasswordHasher
	signer        *CookieSigner
	logger        Logger
	activity      ActivitySink
	sessionCookie string
	secureCookies bool
	now           func() time.Time
}

type SessionManagerOption func(*SessionManager)

func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		m.logger = resolveLogger(logger)
	}
}

func WithSessionActivitySink(sink ActivitySink) SessionManagerOption {
	return func(m *SessionManager) {
		m.activity = normalizeActivitySink(sink)
	}
}

func WithSessionCookieName(name string) SessionManagerOption {
	return func(m *SessionManager) {
		if name != "" {
			m.sessionCookie = name
		}
	}
}

func WithSecureCookies(secure bool) SessionManagerOption {
	return func(m *SessionManager) {
		m.secureCookies = secure
	}
}

func WithSessionClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewSessionManager(users Users, store SessionStore, hasher PasswordHasher, signer *CookieSigner, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		users:         users,
		store:         store,
		hasher:        hasher,
		signer:        signer,
		logger:        defLogger{},
		activity:      discardSink{},
		sessionCookie: DefaultSessionCookie,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Begin starts the session of one request
func (m *SessionManager) Begin(jar CookieJar) *RequestSession {
	return &RequestSession{
		manager: m,
		jar:     jar,
		sid:     jar.Cookies(m.sessionCookie),
	}
}

// RequestSession is the session view of a single request. The current
// user is resolved at most once.
type RequestSession struct {
	manager  *SessionManager
	jar      CookieJar
	sid      string
	data     SessionData
	loaded   bool
	current  *User
	resolved bool
}

// ID is the session id, empty until the session is first saved
func (s *RequestSession) ID() string {
	return s.sid
}

func (s *RequestSession) load(ctx context.Context) (SessionData, error) {
	if s.loaded {
		return s.data, nil
	}

	data := SessionData{}
	if s.sid != "" {
		stored, err := s.manager.store.Load(ctx, s.sid)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			data = stored
		}
	}

	s.data = data
	s.loaded = true
	return s.data, nil
}

func (s *RequestSession) save(ctx context.Context) error {
	if s.sid == "" {
		sid, err := NewToken()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session id")
		}
		s.setSessionID(sid)
	}
	return s.manager.store.Save(ctx, s.sid, s.data)
}

func (s *RequestSession) setSessionID(sid string) {
	s.sid = sid
	s.jar.Cookie(&router.Cookie{
		Name:     s.manager.sessionCookie,
		Value:    sid,
		HTTPOnly: true,
		Secure:   s.manager.secureCookies,
		SameSite: "Lax",
	})
}

// Get returns a session value
func (s *RequestSession) Get(ctx context.Context, key string) (string, error) {
	data, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// Set stores a session value
func (s *RequestSession) Set(ctx context.Context, key, value string) error {
	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(ctx)
}

// Delete removes a session value, a missing key is not an error
func (s *RequestSession) Delete(ctx context.Context, key string) error {
	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(ctx)
}

// LogIn marks user as the authenticated user of this session. The
// session id is rotated.
func (s *RequestSession) LogIn(ctx context.Context, user *User) error {
	if user == nil {
		return goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	data, err := s.load(ctx)
	if err != nil {
		return err
	}

	if s.sid != "" {
		if err := s.manager.store.Destroy(ctx, s.sid); err != nil {
			return err
		}
		s.sid = ""
	}

	data[SessionKeyUserID] = user.ID.String()
	if err := s.save(ctx); err != nil {
		return err
	}

	s.current = user
	s.resolved = true
	return nil
}

// CurrentUser returns the logged in user or nil. The session is
// consulted first, then the remember me cookies. Only store failures
// are returned as errors.
func (s *RequestSession) CurrentUser(ctx context.Context) (*User, error) {
	if s.resolved {
		return s.current, nil
	}

	user, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	s.current = user
	s.resolved = true
	return user, nil
}

func (s *RequestSession) resolve(ctx context.Context) (*User, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if id := data[SessionKeyUserID]; id != "" {
		user, err := s.manager.users.FindByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}

		s.manager.logger.Info("session user no longer exists", "user_id", id)
		if err := s.Delete(ctx, SessionKeyUserID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return s.fromRememberCookies(ctx)
}

func (s *RequestSession) fromRememberCookies(ctx context.Context) (*User, error) {
	signed := s.jar.Cookies(CookieUserID)
	raw := s.jar.Cookies(CookieRememberToken)
	if signed == "" || raw == "" {
		return nil, nil
	}

	id, err := s.manager.signer.Verify(CookieUserID, signed)
	if err != nil {
		s.manager.logger.Debug("ignoring tampered user_id cookie")
		return nil, nil
	}

	user, err := s.manager.users.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if !s.manager.hasher.Verify(user.RememberDigest, raw) {
		return nil, nil
	}

	if err := s.LogIn(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IsLoggedIn reports whether the request has a current user
func (s *RequestSession) IsLoggedIn(ctx context.Context) (bool, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// IsCurrentUser reports whether user is the current user
func (s *RequestSession) IsCurrentUser(ctx context.Context, user *User) (bool, error) {
	current, err := s.CurrentUser(ctx)
	if err != nil {
		return false, err
	}
	return IsSelf(current, user), nil
}

// Remember issues a new remember token for user, replacing any earlier
// one, and sets the permanent cookies.
func (s *RequestSession) Remember(ctx context.Context, user *User) error {
	token, err := NewToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create remember token")
	}

	digest, err := s.manager.hasher.Hash(token)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash remember token")
	}

	if err := s.manager.users.SetRememberDigest(ctx, user.ID, &digest); err != nil {
		return err
	}
	user.RememberDigest = &digest

	signed, err := s.manager.signer.Sign(CookieUserID, user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign user cookie")
	}

	expires := s.manager.now().Add(PermanentCookieDuration)
	s.setCookie(CookieUserID, signed, expires)
	s.setCookie(CookieRememberToken, token, expires)
	return nil
}

// Forget clears the remember digest of user and deletes the cookies
func (s *RequestSession) Forget(ctx context.Context, user *User) error {
	if user != nil {
		if err := s.manager.users.SetRememberDigest(ctx, user.ID, nil); err != nil {
			if !IsNotFound(err) {
				return err
			}
		}
		user.RememberDigest = nil
	}

	s.deleteCookie(CookieUserID)
	s.deleteCookie(CookieRememberToken)
	return nil
}

// LogOut forgets the current user and clears the session. It does
// nothing for anonymous requests.
func (s *RequestSession) LogOut(ctx context.Context) error {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if err := s.Forget(ctx, user); err != nil {
		return err
	}

	if err := s.Delete(ctx, SessionKeyUserID); err != nil {
		return err
	}

	s.current = nil
	s.resolved = false

	recordActivity(ctx, s.manager.activity, s.manager.logger, ActivityEvent{
		EventType:  ActivityEventLogout,
		UserID:     user.ID.String(),
		OccurredAt: s.manager.now(),
	})
	return nil
}

// StoreLocation remembers url as the forwarding url, GET requests only
func (s *RequestSession) StoreLocation(ctx context.Context, method, url string) error {
	if method != http.MethodGet || url == "" {
		return nil
	}
	return s.Set(ctx, SessionKeyForwardingURL, url)
}

// RedirectBackOr returns the stored forwarding url or def. The stored
// url is cleared either way.
func (s *RequestSession) RedirectBackOr(ctx context.Context, def string) (string, error) {
	target, err := s.Get(ctx, SessionKeyForwardingURL)
	if err != nil {
		return "", err
	}

	if err := s.Delete(ctx, SessionKeyForwardingURL); err != nil {
		return "", err
	}

	if target == "" {
		return def, nil
	}
	return target, nil
}

func (s *RequestSession) setCookie(name, value string, expires time.Time) {
	s.jar.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.manager.secureCookies,
		SameSite: "Lax",
	})
}

func (s *RequestSession) deleteCookie(name string) {
	s.jar.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  s.manager.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.manager.secureCookies,
		SameSite: "Lax",
	})
}
