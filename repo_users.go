package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetUserPasswordSQL overwrites the password hash, clears the stored
// refresh token (forcing every open session through a fresh login), and
// marks the email verified since the caller just proved mailbox ownership.
var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?,
	"refresh_token" = ''
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByRefreshToken(ctx context.Context, token string) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error

	TrackAttemptedLogin(ctx context.Context, user *User) error

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
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

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

// GetByEmailTx loads the full record, password hash included. Callers that
// hand users back to clients go through User.Public instead.
func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "email", email)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "username", username)
}

// GetByRefreshToken finds the identity whose stored refresh token matches
// the presented value. Logout uses it so an orphaned cookie still clears the
// right session.
func (a *users) GetByRefreshToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}
	return a.getByColumnTx(ctx, a.db, "refresh_token", token)
}

func (a *users) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// StoreRefreshToken persists the freshly issued refresh token as the only
// valid one, stamps the login, and resets the attempt counters.
func (a *users) StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	loggedInAt := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"refresh_token" = ?,
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, token, loggedInAt, id).Exec(ctx)

	return err
}

// ClearRefreshToken drops the stored refresh token, invalidating any copy
// still held by a client
func (a *users) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET "refresh_token" = ''
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, id).Exec(ctx)

	return err
}

func (a *users) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET "is_email_verified" = TRUE
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, id).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.Update(ctx, record, criteria...)

	return err
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if len(record.Roles) == 0 {
		record.Roles = DefaultRoles()
	}

	if record.Username == "" {
		record.Username = getUsername(record.Username, record.Email)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
