package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/weiwei-tsao/tenant-reconciler/internal/business/audit"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/tenant-reconciler/internal/platform/firestore"
	"github.com/weiwei-tsao/tenant-reconciler/internal/repository"
	"go.uber.org/zap"
)

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Report the tenant id distribution of a collection",
		Long: `Scan AUDIT_COLLECTION and count records per tenant id, records without one and
records whose tenant id is malformed. With AUDIT_TENANTS_COLLECTION set, every distinct
tenant id is also checked for existence. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runAudit(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}
}

func runAudit(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	if err := cfg.Audit.Validate(); err != nil {
		return err
	}
	format, err := tenantFormat(cfg)
	if err != nil {
		return err
	}

	client, _, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		return exitError(exitFailed, fmt.Errorf("firestore init: %w", err))
	}
	defer client.Close()

	pager := repository.NewRecordRepository(client, cfg.Audit.Collection, repository.RecordFields{Tenant: cfg.Audit.TenantField})
	checker := repository.NewReferenceRepository(client, cfg.Audit.TenantField)

	rep, err := audit.Run(ctx, pager, checker, audit.Options{
		Collection:        cfg.Audit.Collection,
		TenantsCollection: cfg.Audit.TenantsCollection,
		PageSize:          cfg.Audit.PageSize,
		Format:            format,
	}, logger)
	if err != nil {
		return exitError(exitFailed, err)
	}

	fmt.Fprint(out, rep.Render())
	if rep.CheckErrors > 0 {
		return exitError(exitFailed, fmt.Errorf("%d tenant checks failed", rep.CheckErrors))
	}
	return nil
}
