package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/tenant-reconciler/internal/platform/firestore"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Firestore connection settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, cfg config.Config, out io.Writer) error {
	client, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		return exitError(exitFailed, fmt.Errorf("firestore init: %w", err))
	}
	defer client.Close()

	if err := firestoreclient.Ping(ctx, client); err != nil {
		return exitError(exitFailed, err)
	}
	fmt.Fprintf(out, "Connected to Firestore project %s using %s credentials\n", cfg.FirebaseProjectID, credsSource)
	return nil
}
