package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Sessions() *DBSessionStore
}

type mngr struct {
	db       *bun.DB
	users    Users
	sessions *DBSessionStore
}

// ManagerOption configures the repository manager
type ManagerOption func(*managerOptions)

type managerOptions struct {
	users    []UsersOption
	sessions SessionStoreOptions
}

// SessionStoreOptions configures the DB session store
type SessionStoreOptions struct {
	Timeout time.Duration
}

func WithUsersOptions(opts ...UsersOption) ManagerOption {
	return func(o *managerOptions) {
		o.users = append(o.users, opts...)
	}
}

func WithSessionTimeout(timeout time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.sessions.Timeout = timeout
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	options := managerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return &mngr{
		db:       db,
		users:    NewUsersRepository(db, options.users...),
		sessions: NewDBSessionStore(db, options.sessions.Timeout),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Sessions() *DBSessionStore {
	return m.sessions
}

// CreateSchema creates the users and sessions tables when missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*User)(nil),
		(*SessionRecord)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	_, err := db.NewCreateIndex().
		Model((*SessionRecord)(nil)).
		Index("sessions_updated_at_idx").
		Column("updated_at").
		IfNotExists().
		Exec(ctx)
	return err
}
