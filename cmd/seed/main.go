// Command storefront-seed fills the users document with fake accounts sharing one password.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/config"
	pkgcrypto "github.com/and161185/storefront/internal/crypto"
	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository/jsonfile"
)

// fakerSeed keeps generated users stable between runs.
const fakerSeed = 20250816

type options struct {
	count    int
	reset    bool
	password string
	dataDir  string
}

// parseOptions reads flags; cfg supplies the defaults.
func parseOptions(args []string, cfg *config.Config, out io.Writer) (options, error) {
	fs := flag.NewFlagSet("storefront-seed", flag.ContinueOnError)
	fs.SetOutput(out)

	var o options
	fs.IntVar(&o.count, "count", cfg.Seed.UsersCount, "number of users to create")
	fs.BoolVar(&o.reset, "reset", true, "empty the users document first")
	fs.StringVar(&o.password, "password", cfg.Seed.UsersPassword, "password shared by every seeded user")
	fs.StringVar(&o.dataDir, "data-dir", cfg.Storage.DataDir, "directory holding users.json")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.count < 1 {
		return options{}, fmt.Errorf("invalid -count %d: must be positive", o.count)
	}
	if o.password == "" {
		return options{}, errors.New("-password must not be empty")
	}
	return o, nil
}

// userStore is the part of the user repository the seeder needs.
type userStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, email, name, passwordHash string, roles []string) (*model.User, error)
	Reset(ctx context.Context) error
}

// seedUsers creates o.count users. Roughly one in five also gets the admin role.
// Generated emails that already exist are drawn again.
func seedUsers(ctx context.Context, users userStore, o options, f *gofakeit.Faker) ([]*model.User, error) {
	if o.reset {
		if err := users.Reset(ctx); err != nil {
			return nil, err
		}
	}

	// one hash for everyone keeps seeding fast
	hash, err := pkgcrypto.HashPassword(o.password)
	if err != nil {
		return nil, err
	}

	created := make([]*model.User, 0, o.count)
	for len(created) < o.count {
		first, last := f.FirstName(), f.LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s@%s", first, last, f.DomainName()))
		email = strings.ReplaceAll(email, " ", "")

		_, err := users.FindByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return created, err
		}

		roles := []string{model.RoleUser}
		if f.IntRange(1, 10) <= 2 {
			roles = append(roles, model.RoleAdmin)
		}
		u, err := users.Create(ctx, email, first+" "+last, hash, roles)
		if err != nil {
			return created, err
		}
		created = append(created, u)
	}
	return created, nil
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	o, err := parseOptions(os.Args[1:], cfg, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal("bad arguments", zap.Error(err))
	}
	if err := os.MkdirAll(o.dataDir, 0o700); err != nil {
		logger.Fatal("create data dir", zap.Error(err))
	}

	path := jsonfile.UsersPath(o.dataDir)
	created, err := seedUsers(context.Background(), jsonfile.NewUserRepo(path), o, gofakeit.New(fakerSeed))
	if err != nil {
		logger.Fatal("seed failed", zap.Int("created", len(created)), zap.Error(err))
	}

	admins := 0
	for _, u := range created {
		if len(u.Roles) > 1 {
			admins++
		}
	}
	logger.Info("seeded users",
		zap.Int("count", len(created)),
		zap.Int("admins", admins),
		zap.String("path", path),
		zap.String("password", o.password),
	)
}
