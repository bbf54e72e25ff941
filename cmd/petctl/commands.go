package main

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/config"
	"github.com/petcontrol/pet-control/internal/domain"
	"github.com/petcontrol/pet-control/internal/observability"
	"github.com/petcontrol/pet-control/internal/persistence"
	"github.com/petcontrol/pet-control/internal/repository"
)

// store is what the commands need from the identity store.
type store interface {
	Migrate(ctx context.Context) error
	Users() repository.UserRepository
	Close()
}

type storeOpener func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, error)

type postgresStore struct {
	pg     *persistence.Postgres
	dir    string
	logger *zap.Logger
}

func newPostgresStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &postgresStore{pg: pg, dir: cfg.Postgres.MigrationsDir, logger: logger}, nil
}

func (s *postgresStore) Migrate(ctx context.Context) error {
	return persistence.RunMigrations(ctx, s.pg.PoolHandle(), s.dir, s.logger)
}

func (s *postgresStore) Users() repository.UserRepository {
	return repository.NewUserRepository(s.pg.PoolHandle())
}

func (s *postgresStore) Close() { s.pg.Close() }

func rootCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "petctl",
		Short:         "Administer the pet-control identity store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(migrateCmd(open), usersCmd(open))
	return cmd
}

func migrateCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), open, func(ctx context.Context, s store, _ *config.Config) error {
				return s.Migrate(ctx)
			})
		},
	}
}

func usersCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard users",
	}
	cmd.AddCommand(usersCreateCmd(open))
	return cmd
}

type createUserInput struct {
	Name     string
	Email    string
	Password string
}

func (in createUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 256)),
	)
}

func usersCreateCmd(open storeOpener) *cobra.Command {
	var in createUserInput
	var inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a bcrypt-hashed password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := in.Validate(); err != nil {
				return err
			}
			return withStore(cmd.Context(), open, func(ctx context.Context, s store, cfg *config.Config) error {
				hash, err := auth.HashPassword(in.Password, cfg.Auth.BcryptCost)
				if err != nil {
					return err
				}
				user := &domain.User{
					Name:         in.Name,
					Email:        in.Email,
					PasswordHash: hash,
					Active:       !inactive,
				}
				if err := s.Users().Create(ctx, user); err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.ID, repository.NormalizeEmail(user.Email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Login e-mail")
	cmd.Flags().StringVar(&in.Password, "password", "", "Initial password")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the user disabled")
	return cmd
}

func withStore(ctx context.Context, open storeOpener, fn func(context.Context, store, *config.Config) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger, "petctl")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	s, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s, cfg)
}
