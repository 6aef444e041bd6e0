package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Placeholder commands
var placeholderCmd = &cobra.Command{
	Use:   "placeholder",
	Short: "Manage constraint placeholders",
}

var placeholderCreateCmd = &cobra.Command{
	Use:   "create [ID]",
	Short: "Create a constraint placeholder",
	Long: `Create an AND/OR constraint placeholder. Without an ID the next free
ph_<N> is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefFlag, _ := cmd.Flags().GetString("preference")
		pref, err := parsePreference(prefFlag)
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 1 {
			id = args[0]
		}

		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		ph, err := mgr.AddPlaceholder(id, pref)
		if err != nil {
			return fmt.Errorf("failed to create placeholder: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Placeholder created: %s (%s)\n", ph.ID(), pref)
		return nil
	},
}

var placeholderAddCmd = &cobra.Command{
	Use:   "add PLACEHOLDER",
	Short: "Connect resources to a placeholder",
	Long: `Connect resources to a constraint placeholder and submit the
resulting resource-set colocation and order constraints.

Resources given with --from are the upstream side of the connection; the
remaining --rsc resources go to the other side.

Examples:
  # ip and fs start before the placeholder, db after it
  lcmc placeholder add ph_1 --rsc ip,fs,db --from ip,fs --status status.yaml

  # Show the resulting sets without submitting
  lcmc placeholder add ph_1 --rsc db --preview --status status.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rscs, _ := cmd.Flags().GetStringSlice("rsc")
		from, _ := cmd.Flags().GetStringSlice("from")
		noCol, _ := cmd.Flags().GetBool("no-colocation")
		noOrd, _ := cmd.Flags().GetBool("no-order")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		preview, _ := cmd.Flags().GetBool("preview")

		all := append(append([]string(nil), from...), rscs...)

		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		if mgr.Status().Current() == nil {
			return fmt.Errorf("no cluster status, use --status")
		}

		if preview {
			sets, err := mgr.PreviewPlaceholder(cmd.Context(), args[0], all, from, !noCol, !noOrd)
			if err != nil {
				return err
			}
			return printYAML(cmd, sets)
		}

		a, err := mgr.AddToPlaceholder(cmd.Context(), args[0], all, from, !noCol, !noOrd, dryRun)
		if err != nil {
			return err
		}
		if err := a.Wait(); err != nil {
			return fmt.Errorf("failed to submit placeholder %s: %v", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Placeholder %s submitted\n", args[0])
		return nil
	},
}

var placeholderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List placeholders with their connection data",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		states, err := mgr.ListPlaceholders()
		if err != nil {
			return err
		}
		return printYAML(cmd, states)
	},
}

var placeholderRemoveCmd = &cobra.Command{
	Use:   "remove PLACEHOLDER",
	Short: "Remove a placeholder without constraints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		if err := mgr.RemovePlaceholder(args[0]); err != nil {
			return fmt.Errorf("failed to remove placeholder: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Placeholder removed: %s\n", args[0])
		return nil
	},
}

func init() {
	placeholderCmd.AddCommand(placeholderCreateCmd)
	placeholderCmd.AddCommand(placeholderAddCmd)
	placeholderCmd.AddCommand(placeholderListCmd)
	placeholderCmd.AddCommand(placeholderRemoveCmd)

	placeholderCreateCmd.Flags().String("preference", "AND", "Placeholder preference (AND or OR)")

	placeholderAddCmd.Flags().StringSlice("rsc", nil, "Resources on the downstream side")
	placeholderAddCmd.Flags().StringSlice("from", nil, "Resources on the upstream side")
	placeholderAddCmd.Flags().Bool("no-colocation", false, "Do not touch the colocation constraint")
	placeholderAddCmd.Flags().Bool("no-order", false, "Do not touch the order constraint")
	placeholderAddCmd.Flags().Bool("dry-run", false, "Apply to a shadow CIB and simulate")
	placeholderAddCmd.Flags().Bool("preview", false, "Print the resulting sets without submitting")
}
