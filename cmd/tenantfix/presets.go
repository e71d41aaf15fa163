package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/weiwei-tsao/tenant-reconciler/internal/business/reconcile"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in collection presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := reconcile.LoadPresets()
			if err != nil {
				return err
			}
			return printPresets(cmd.OutOrStdout(), presets)
		},
	}
}

func printPresets(out io.Writer, presets map[string]reconcile.Preset) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("PRESET", "COLLECTION", "TENANT FIELD", "STRATEGY", "PARENT", "CREATOR")
	for _, name := range reconcile.PresetNames(presets) {
		p := presets[name]
		t.Row(name, p.Collection, p.TenantField, string(p.Strategy), refLabel(p.Parent), refLabel(p.Creator))
	}
	_, err := fmt.Fprintln(out, t.Render())
	return err
}

func refLabel(r reconcile.RefSpec) string {
	if r.Field == "" {
		return "-"
	}
	return r.Field + " -> " + r.Collection
}
