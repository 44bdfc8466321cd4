package jsonfile

import (
	"context"
	"slices"
	"strings"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/filestore"
	"github.com/and161185/storefront/internal/model"
)

// UserRepo implements UserRepository on a single JSON document.
type UserRepo struct {
	doc *filestore.Document[model.User]
	now clock
}

// NewUserRepo constructs a user repository backed by the file at path.
func NewUserRepo(path string) *UserRepo {
	return &UserRepo{doc: filestore.Open[model.User](path), now: utcNow}
}

// FindByEmail returns the user whose email matches case-insensitively.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var found *model.User
	err := r.doc.View(ctx, func(users []model.User) error {
		want := strings.ToLower(email)
		for i := range users {
			if strings.ToLower(users[i].Email) == want {
				found = &users[i]
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return found, err
}

// FindByID returns the user with the given ID.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var found *model.User
	err := r.doc.View(ctx, func(users []model.User) error {
		i := indexByID(users, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		found = &users[i]
		return nil
	})
	return found, err
}

// Create appends a new user with ID max+1.
func (r *UserRepo) Create(ctx context.Context, email, name, passwordHash string, roles []string) (*model.User, error) {
	var created model.User
	err := r.doc.Update(ctx, func(users []model.User) ([]model.User, bool, error) {
		var maxID int64
		for _, u := range users {
			maxID = max(maxID, u.ID)
		}
		now := r.now()
		created = model.User{
			ID:                maxID + 1,
			Email:             email,
			Name:              name,
			PasswordHash:      passwordHash,
			Roles:             slices.Clone(roles),
			ActiveRefreshJTIs: []string{},
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return append(users, created), true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AddRefreshJTI appends jti to the user's active sessions unless already present.
func (r *UserRepo) AddRefreshJTI(ctx context.Context, userID int64, jti string) error {
	return r.mutate(ctx, userID, func(u *model.User) bool {
		if slices.Contains(u.ActiveRefreshJTIs, jti) {
			return false
		}
		u.ActiveRefreshJTIs = append(u.ActiveRefreshJTIs, jti)
		return true
	})
}

// RemoveRefreshJTI drops jti from the user's active sessions.
func (r *UserRepo) RemoveRefreshJTI(ctx context.Context, userID int64, jti string) error {
	return r.mutate(ctx, userID, func(u *model.User) bool {
		n := len(u.ActiveRefreshJTIs)
		u.ActiveRefreshJTIs = slices.DeleteFunc(u.ActiveRefreshJTIs, func(x string) bool { return x == jti })
		return len(u.ActiveRefreshJTIs) != n
	})
}

// ClearRefreshJTIs drops every active session of the user.
func (r *UserRepo) ClearRefreshJTIs(ctx context.Context, userID int64) error {
	return r.mutate(ctx, userID, func(u *model.User) bool {
		if len(u.ActiveRefreshJTIs) == 0 {
			return false
		}
		u.ActiveRefreshJTIs = []string{}
		return true
	})
}

// mutate applies fn to one user and bumps updatedAt when fn reports a change.
// Unknown users and unchanged records leave the document untouched.
func (r *UserRepo) mutate(ctx context.Context, userID int64, fn func(u *model.User) bool) error {
	return r.doc.Update(ctx, func(users []model.User) ([]model.User, bool, error) {
		i := indexByID(users, userID)
		if i < 0 || !fn(&users[i]) {
			return nil, false, nil
		}
		if users[i].ActiveRefreshJTIs == nil {
			users[i].ActiveRefreshJTIs = []string{}
		}
		users[i].UpdatedAt = r.now()
		return users, true, nil
	})
}

// Reset empties the users document.
func (r *UserRepo) Reset(ctx context.Context) error {
	return r.doc.Replace(ctx, nil)
}

func indexByID(users []model.User, id int64) int {
	return slices.IndexFunc(users, func(u model.User) bool { return u.ID == id })
}
