package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/weiwei-tsao/tenant-reconciler/internal/business/reconcile"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/tenant-reconciler/internal/platform/firestore"
	"github.com/weiwei-tsao/tenant-reconciler/internal/repository"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
	"go.uber.org/zap"
)

// runsDisabled turns off run persistence when used as RECONCILE_RUNS_COLLECTION.
const runsDisabled = "-"

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Fill missing tenant ids in one collection",
		Long: `Scan the configured collection page by page and fill the tenant id of every
record whose referenced creator or parent belongs to RECONCILE_TENANT_ID.

Records that already carry a tenant are never modified. Every record is written to a
JSONL report under RECONCILE_REPORT_DIR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runReconcile(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}
}

// prepareReconcile validates the job input without touching storage.
func prepareReconcile(cfg config.Config) (reconcile.Options, error) {
	format, err := tenantFormat(cfg)
	if err != nil {
		return reconcile.Options{}, err
	}
	presets, err := reconcile.LoadPresets()
	if err != nil {
		return reconcile.Options{}, err
	}
	return reconcile.BuildOptions(cfg.Reconcile, format, presets)
}

func runReconcile(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	opts, err := prepareReconcile(cfg)
	if err != nil {
		return err
	}

	client, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		return exitError(exitFailed, fmt.Errorf("firestore init: %w", err))
	}
	defer client.Close()
	logger.Info("connected to firestore",
		zap.String("project", cfg.FirebaseProjectID),
		zap.String("credentials", credsSource))

	runID := uuid.NewString()
	reportPath := cfg.Reconcile.ReportPath
	if reportPath == "" {
		reportPath = reconcile.DefaultReportPath(cfg.Reconcile.ReportDir, opts.Collection, runID)
	}
	report, closer, err := reconcile.CreateReportFile(reportPath)
	if err != nil {
		return exitError(exitFailed, err)
	}
	defer closer.Close()

	started := time.Now().UTC()
	run := model.ReconcileRun{
		RunID:      runID,
		Collection: opts.Collection,
		TenantID:   opts.TargetTenant,
		Strategy:   string(opts.Strategy),
		DryRun:     opts.DryRun,
		Status:     model.RunStatusRunning,
		ReportPath: report.Path(),
		StartedAt:  started,
	}
	var runs *repository.RunRepository
	if cfg.Reconcile.RunsCollection != runsDisabled {
		runs = repository.NewRunRepository(client, cfg.Reconcile.RunsCollection)
		if err := runs.SaveRun(ctx, run); err != nil {
			logger.Warn("persist run start", zap.Error(err))
		}
	}

	fmt.Fprintf(out, "Reconciling %s for tenant %s (strategy %s, dry run %t)\n",
		opts.Collection, opts.TargetTenant, opts.Strategy, opts.DryRun)

	if err := report.Header(reconcile.RunHeader{
		RunID:      runID,
		Collection: opts.Collection,
		TenantID:   opts.TargetTenant,
		Strategy:   opts.Strategy,
		DryRun:     opts.DryRun,
		PageSize:   opts.PageSize,
		BatchSize:  opts.BatchSize,
		StartedAt:  started,
	}); err != nil {
		return exitError(exitFailed, err)
	}

	records := repository.NewRecordRepository(client, opts.Collection, opts.Fields())
	refs := repository.NewReferenceRepository(client, opts.TenantField)
	res, runErr := reconcile.Run(ctx, records, refs, report, opts, logger, func(s model.RunStats) {
		fmt.Fprintf(out, "  page %d: %d scanned, %d eligible, %d errors\n",
			s.Pages, s.Scanned, s.ByOutcome[string(model.OutcomeEligible)], s.Errors)
	})

	finished := time.Now().UTC()
	run.Status = reconcile.Status(res.Stats, runErr)
	run.Stats = res.Stats
	run.ErrorSample = res.ErrorSample
	run.FinishedAt = finished

	if err := report.Footer(reconcile.RunFooter{
		RunID:      runID,
		Status:     run.Status,
		Stats:      res.Stats,
		FinishedAt: finished,
	}); err != nil {
		logger.Error("write report footer", zap.Error(err))
	}

	fmt.Fprintln(out, reconcile.RenderSummary(opts, res, report.Path(), finished.Sub(started)))

	if runs != nil {
		// The run may have been cancelled; the summary still has to land.
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := runs.SaveRun(saveCtx, run); err != nil {
			logger.Warn("persist run summary", zap.Error(err))
		}
	}

	if runErr != nil {
		return exitError(exitFailed, runErr)
	}
	if res.Stats.Errors > 0 {
		return exitError(exitFailed, fmt.Errorf("%d errors recorded, see %s", res.Stats.Errors, report.Path()))
	}
	return nil
}
