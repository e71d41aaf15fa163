package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/logging"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/util"
	"go.uber.org/zap"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// codedError carries the process exit code of a failed command.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func exitError(code int, err error) error {
	return &codedError{code: code, err: err}
}

// exitCode maps a command error to the process exit status. Configuration errors are
// detected before any storage access and exit with 2.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if errors.Is(err, config.ErrInvalid) {
		return exitConfig
	}
	return exitFailed
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tenantfix: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "tenantfix",
		Short: "Repair missing tenant ids in Firestore collections",
		Long: `tenantfix fills the tenant id of records that lack one, deriving it from the
record they reference (their creator or their parent). All settings come from the
environment; .env.local and .env are loaded first.

Runs are dry by default. Set RECONCILE_DRY_RUN=false to write.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newReconcileCmd(), newAuditCmd(), newPresetsCmd(), newCheckCmd())
	return root
}

// loadEnv reads the configuration and builds the logger shared by the commands that
// touch Firestore.
func loadEnv() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	return cfg, logger, nil
}

func tenantFormat(cfg config.Config) (util.TenantIDFormat, error) {
	format, err := util.NewTenantIDFormat(cfg.TenantIDPattern)
	if err != nil {
		return util.TenantIDFormat{}, fmt.Errorf("%w: TENANT_ID_PATTERN: %v", config.ErrInvalid, err)
	}
	return format, nil
}
