package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Users interface {
	repository.Repository[*User]

	CreateUser(ctx context.Context, in RegistrationInput, opts ...CreateUserOption) (*User, error)
	CreateUserTx(ctx context.Context, tx bun.IDB, in RegistrationInput, opts ...CreateUserOption) (*User, error)
	UpdateUser(ctx context.Context, user *User, in ProfileUpdateInput) (*User, error)
	UpdateUserTx(ctx context.Context, tx bun.IDB, user *User, in ProfileUpdateInput) (*User, error)
	ChangePasswordTx(ctx context.Context, tx bun.IDB, user *User, in PasswordResetInput) error

	FindByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	ListUsers(ctx context.Context, page, perPage int) ([]*User, int, error)

	SetRememberDigest(ctx context.Context, id uuid.UUID, digest *string) error
	SetActivationDigestTx(ctx context.Context, tx bun.IDB, id uuid.UUID, digest *string) error
	MarkActivatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
	SetResetDigestTx(ctx context.Context, tx bun.IDB, id uuid.UUID, digest *string, sentAt *time.Time) error
	ClearResetDigestTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db     *bun.DB
	hasher PasswordHasher
	now    func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

// WithUsersHasher sets the hasher used for password digests
func WithUsersHasher(h PasswordHasher) UsersOption {
	return func(u *users) {
		if h != nil {
			u.hasher = h
		}
	}
}

// WithUsersClock overrides the time source, used by tests
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		hasher:     NewBcryptHasher(0),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

type createUserOptions struct {
	useHashid bool
}

// CreateUserOption tweaks how a new record is created
type CreateUserOption func(*createUserOptions)

// WithHashid derives the user id from the email
func WithHashid(enabled bool) CreateUserOption {
	return func(o *createUserOptions) {
		o.useHashid = enabled
	}
}

func (a *users) CreateUser(ctx context.Context, in RegistrationInput, opts ...CreateUserOption) (*User, error) {
	return a.CreateUserTx(ctx, a.db, in, opts...)
}

func (a *users) CreateUserTx(ctx context.Context, tx bun.IDB, in RegistrationInput, opts ...CreateUserOption) (*User, error) {
	options := createUserOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	attrs := &userAttributes{
		Name:                 in.Name,
		Email:                NormalizeEmail(in.Email),
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
		Age:                  in.Age,
		Gender:               in.Gender,
		Birthday:             in.Birthday,
	}

	if err := attrs.validate(ctx, a.emailTaken(tx, uuid.Nil), true); err != nil {
		return nil, err
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	gender, _ := ParseGender(in.Gender)
	now := a.now()
	user := &User{
		Name:         attrs.Name,
		Email:        attrs.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Age:          *attrs.Age,
		Gender:       gender,
		Birthday:     parseBirthday(in.Birthday),
		PasswordHash: hash,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	if options.useHashid {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validation.Errors{"email": errors.New(MsgTaken)}
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	return created, nil
}

func (a *users) UpdateUser(ctx context.Context, user *User, in ProfileUpdateInput) (*User, error) {
	return a.UpdateUserTx(ctx, a.db, user, in)
}

// UpdateUserTx applies a profile update. The password is only
// changed when both password fields are filled in.
func (a *users) UpdateUserTx(ctx context.Context, tx bun.IDB, user *User, in ProfileUpdateInput) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	changePassword := in.Password != "" && in.PasswordConfirmation != ""

	attrs := &userAttributes{
		Name:                 in.Name,
		Email:                NormalizeEmail(in.Email),
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
		Age:                  in.Age,
		Gender:               in.Gender,
		Birthday:             in.Birthday,
	}

	if err := attrs.validate(ctx, a.emailTaken(tx, user.ID), changePassword); err != nil {
		return nil, err
	}

	gender, _ := ParseGender(in.Gender)
	now := a.now()

	updated := *user
	updated.Name = attrs.Name
	updated.Email = attrs.Email
	updated.FirstName = in.FirstName
	updated.LastName = in.LastName
	updated.Age = *attrs.Age
	updated.Gender = gender
	updated.Birthday = parseBirthday(in.Birthday)
	updated.UpdatedAt = &now

	columns := []string{"name", "email", "first_name", "last_name", "age", "gender", "birthday", "updated_at"}

	if changePassword {
		hash, err := a.hasher.Hash(in.Password)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		updated.PasswordHash = hash
		columns = append(columns, "password_hash")
	}

	res, err := tx.NewUpdate().
		Model(&updated).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validation.Errors{"email": errors.New(MsgTaken)}
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if err := expectRow(res, user.ID); err != nil {
		return nil, err
	}

	return &updated, nil
}

// ChangePasswordTx validates the reset input and stores the new
// password, clearing any pending reset.
func (a *users) ChangePasswordTx(ctx context.Context, tx bun.IDB, user *User, in PasswordResetInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", hash).
		Set("reset_digest = NULL").
		Set("reset_sent_at = NULL").
		Set("updated_at = ?", a.now()).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
	}

	if err := expectRow(res, user.ID); err != nil {
		return err
	}

	user.PasswordHash = hash
	user.ResetDigest = nil
	user.ResetSentAt = nil
	return nil
}

// FindByID looks a user up by its string id. Malformed ids read as
// not found.
func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id,
			})
	}

	record := &User{}
	err = a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id,
				})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

// ListUsers returns one page of users, oldest first, and the total
func (a *users) ListUsers(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	records := make([]*User, 0, perPage)
	total, err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC", "id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	return records, total, nil
}

func (a *users) SetRememberDigest(ctx context.Context, id uuid.UUID, digest *string) error {
	return a.setColumns(ctx, a.db, id, map[string]any{"remember_digest": digest})
}

func (a *users) SetActivationDigestTx(ctx context.Context, tx bun.IDB, id uuid.UUID, digest *string) error {
	return a.setColumns(ctx, tx, id, map[string]any{"activation_digest": digest})
}

func (a *users) MarkActivatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	return a.setColumns(ctx, tx, id, map[string]any{
		"activated":         true,
		"activated_at":      at,
		"activation_digest": nil,
	})
}

func (a *users) SetResetDigestTx(ctx context.Context, tx bun.IDB, id uuid.UUID, digest *string, sentAt *time.Time) error {
	return a.setColumns(ctx, tx, id, map[string]any{
		"reset_digest":  digest,
		"reset_sent_at": sentAt,
	})
}

func (a *users) ClearResetDigestTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return a.SetResetDigestTx(ctx, tx, id, nil, nil)
}

func (a *users) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	return a.setColumns(ctx, a.db, id, map[string]any{"is_admin": admin})
}

func (a *users) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}
	return expectRow(res, id)
}

// setColumns runs a single row UPDATE. Nil values are written as NULL.
func (a *users) setColumns(ctx context.Context, tx bun.IDB, id uuid.UUID, values map[string]any) error {
	q := tx.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = ?", a.now())

	for column, value := range values {
		q = q.Set("? = ?", bun.Ident(column), value)
	}

	res, err := q.Where("id = ?", id).Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	return expectRow(res, id)
}

func (a *users) emailTaken(tx bun.IDB, exclude uuid.UUID) EmailTaken {
	return func(ctx context.Context, email string) (bool, error) {
		q := tx.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.email = ?", NormalizeEmail(email))
		if exclude != uuid.Nil {
			q = q.Where("?TableAlias.id != ?", exclude)
		}
		return q.Exists(ctx)
	}
}

func expectRow(res interface{ RowsAffected() (int64, error) }, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read affected rows")
	}
	if n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}
