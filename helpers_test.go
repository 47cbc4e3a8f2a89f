package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	auth "github.com/goliatone/go-session-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "foobar"

func intPtr(v int) *int {
	return &v
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return db
}

type cookieJar struct {
	values map[string]string
	set    []*router.Cookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{values: map[string]string{}}
}

func (j *cookieJar) Cookies(key string, defaultValue ...string) string {
	if v, ok := j.values[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (j *cookieJar) Cookie(c *router.Cookie) {
	j.set = append(j.set, c)
	if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
		delete(j.values, c.Name)
		return
	}
	j.values[c.Name] = c.Value
}

func (j *cookieJar) last(name string) *router.Cookie {
	for i := len(j.set) - 1; i >= 0; i-- {
		if j.set[i].Name == name {
			return j.set[i]
		}
	}
	return nil
}

type sentMail struct {
	kind  string
	user  *auth.User
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) SendActivation(_ context.Context, user *auth.User, token string) error {
	return n.record("activation", user, token)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, user *auth.User, token string) error {
	return n.record("reset", user, token)
}

func (n *recordingNotifier) record(kind string, user *auth.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, user: user, token: token})
	return n.err
}

func (n *recordingNotifier) lastToken(kind string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i].token
		}
	}
	return ""
}

type activityRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type testEnv struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	hasher   *auth.BcryptHasher
	notifier *recordingNotifier
	activity *activityRecorder
	store    *auth.MemorySessionStore
	signer   *auth.CookieSigner
	manager  *auth.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	env := &testEnv{
		db:       db,
		hasher:   hasher,
		notifier: &recordingNotifier{},
		activity: &activityRecorder{},
		store:    auth.NewMemorySessionStore(time.Hour),
		signer:   auth.NewCookieSigner([]byte("0123456789abcdef0123456789abcdef")),
	}
	env.repo = auth.NewRepositoryManager(db, auth.WithUsersOptions(auth.WithUsersHasher(hasher)))
	env.manager = auth.NewSessionManager(env.repo.Users(), env.store, hasher, env.signer,
		auth.WithSessionLogger(nopLogger{}),
		auth.WithSessionActivitySink(env.activity),
	)
	return env
}

func (e *testEnv) handlerOptions(extra ...auth.HandlerOption) []auth.HandlerOption {
	return append([]auth.HandlerOption{
		auth.WithHasher(e.hasher),
		auth.WithNotifier(e.notifier),
		auth.WithActivitySink(e.activity),
		auth.WithLogger(nopLogger{}),
	}, extra...)
}

func registration(name, email string) auth.RegistrationInput {
	return auth.RegistrationInput{
		Name:                 name,
		Email:                email,
		Password:             testPassword,
		PasswordConfirmation: testPassword,
		Age:                  intPtr(30),
	}
}

// createUser stores an account, activated unless told otherwise
func (e *testEnv) createUser(t *testing.T, name, email string, activated bool) *auth.User {
	t.Helper()
	ctx := context.Background()

	user, err := e.repo.Users().CreateUser(ctx, registration(name, email))
	require.NoError(t, err)

	if activated {
		now := time.Now()
		require.NoError(t, e.repo.Users().MarkActivatedTx(ctx, e.db, user.ID, now))
		user.Activated = true
		user.ActivatedAt = &now
	}
	return user
}

func (e *testEnv) reload(t *testing.T, user *auth.User) *auth.User {
	t.Helper()
	fresh, err := e.repo.Users().FindByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	return fresh
}
