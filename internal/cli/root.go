package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go-school-portal/internal/app"
	"go-school-portal/internal/config"
	"go-school-portal/internal/database"
	"go-school-portal/internal/event"
	"go-school-portal/internal/logger"
	"go-school-portal/internal/repository"
	"go-school-portal/internal/service"
)

type backend struct {
	store   service.CredentialStore
	audit   service.AuditStore
	migrate func(ctx context.Context) error
	close   func()
}

var (
	loadConfigFunc   = config.Load
	connectFunc      = connectPostgres
	readPasswordFunc = term.ReadPassword // mockable
	passwordFd       = int(os.Stdin.Fd())

	errEmptyPassword    = errors.New("password cannot be empty")
	errPasswordMismatch = errors.New("passwords do not match")
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "schooladmin",
		Short:         "Administer school portal credentials",
		Long:          "schooladmin applies database migrations and manages credentials in the users, staff and teachers registries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCommand(), newCreateCommand(), newResetPasswordCommand())
	return root
}

// ExecuteContext runs the CLI with os.Args.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*backend, error) {
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}

	return &backend{
		store:   repository.NewCredentialRepository(db.Pool),
		audit:   repository.NewAuditRepository(db.Pool),
		migrate: db.Migrate,
		close:   db.Close,
	}, nil
}

// withBackend loads configuration, installs the logger and opens the credential store for fn.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, b *backend) error) error {
	cfg, err := loadConfigFunc()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := connectFunc(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer b.close()

	return fn(ctx, cfg, b)
}

// newAuthService builds the auth service with its events recorded in the
// audit trail. stop persists queued events and must run before b closes.
func newAuthService(ctx context.Context, cfg *config.Config, b *backend) (svc *service.AuthService, stop func(), err error) {
	svc, err = app.NewAuthService(cfg, b.store)
	if err != nil {
		return nil, nil, err
	}

	bus := event.NewBus()
	auditCtx, cancel := context.WithCancel(ctx)
	done := service.NewAuditService(b.audit, bus).Start(auditCtx)
	svc.SetEventBus(bus)

	return svc, func() {
		cancel()
		<-done
	}, nil
}

func promptPassword(w io.Writer, confirm bool) (string, error) {
	pwd, err := readPrompt(w, "Enter password: ")
	if err != nil {
		return "", err
	}
	if pwd == "" {
		return "", errEmptyPassword
	}

	if confirm {
		again, err := readPrompt(w, "Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pwd {
			return "", errPasswordMismatch
		}
	}

	return pwd, nil
}

func readPrompt(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	raw, err := readPasswordFunc(passwordFd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
