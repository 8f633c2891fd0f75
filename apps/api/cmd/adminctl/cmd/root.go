package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rentdash/apps/api/internal/config"
	"rentdash/apps/api/internal/database"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
	"rentdash/apps/api/internal/service"
)

type userDirectory interface {
	Create(ctx context.Context, user models.User) error
}

type backend struct {
	admins *service.AdminService
	users  userDirectory
	close  func()
}

// openBackend is swapped out in tests.
var openBackend = func(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	pool, err := database.Open(ctx, cfg.Postgres, "rentdash-adminctl")
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &backend{
		admins: service.NewAdminService(repository.NewAdminRepository(pool), nil, nil, zerolog.Nop()),
		users:  repository.NewUserRepository(pool),
		close:  pool.Close,
	}, nil
}

var be *backend

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Manage rental dashboard administrators",
	Long: `adminctl edits the admin registry directly. Running API servers see
changes once their admin cache entry expires (five minutes by default).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		be = b
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if be != nil && be.close != nil {
			be.close()
		}
		be = nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
