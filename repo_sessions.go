package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SessionRecord is a persisted browser session
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            string            `bun:"id,pk" json:"id"`
	Data          map[string]string `bun:"data" json:"data"`
	UpdatedAt     time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// DBSessionStore keeps sessions in the sessions table so they survive
// restarts.
type DBSessionStore struct {
	db      bun.IDB
	timeout time.Duration
	now     func() time.Time
}

var _ SessionStore = (*DBSessionStore)(nil)

func NewDBSessionStore(db bun.IDB, timeout time.Duration) *DBSessionStore {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &DBSessionStore{
		db:      db,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock overrides the time source
func (s *DBSessionStore) WithClock(now func() time.Time) *DBSessionStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *DBSessionStore) Load(ctx context.Context, id string) (SessionData, error) {
	record := &SessionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if IsNotFound(err) {
			return SessionData{}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	now := s.now()
	if now.Sub(record.UpdatedAt) > s.timeout {
		if err := s.Destroy(ctx, id); err != nil {
			return nil, err
		}
		return SessionData{}, nil
	}

	_, err = s.db.NewUpdate().
		Model((*SessionRecord)(nil)).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to touch session")
	}

	data := SessionData{}
	for k, v := range record.Data {
		data[k] = v
	}
	return data, nil
}

func (s *DBSessionStore) Save(ctx context.Context, id string, data SessionData) error {
	record := &SessionRecord{
		ID:        id,
		Data:      map[string]string(data),
		UpdatedAt: s.now(),
	}
	if record.Data == nil {
		record.Data = map[string]string{}
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session")
	}
	return nil
}

func (s *DBSessionStore) Destroy(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to destroy session")
	}
	return nil
}

// PurgeExpired deletes sessions idle for longer than the timeout
func (s *DBSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("updated_at < ?", s.now().Add(-s.timeout)).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge sessions")
	}
	return res.RowsAffected()
}
