package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Status commands
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect cluster status and session resources",
}

var statusShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cluster status given with --status",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		snap := mgr.Status().Current()
		if snap == nil {
			return fmt.Errorf("no cluster status, use --status")
		}
		return printYAML(cmd, snap)
	},
}

var statusResourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Print the session resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		resources, err := mgr.ListResources()
		if err != nil {
			return err
		}
		return printYAML(cmd, resources)
	},
}

// Journal commands
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect CRM commands sent from this session",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled CRM batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		records, err := mgr.Journal()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, rec := range records {
			result := "ok"
			if !rec.Succeeded {
				result = "failed: " + rec.Error
			}
			mode := ""
			if rec.TestOnly {
				mode = " (dry run)"
			}
			fmt.Fprintf(out, "%s  %-26s %s%s  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Operation, rec.Host, mode, result)
			for _, c := range rec.Commands {
				fmt.Fprintf(out, "    %s\n", c)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.AddCommand(statusShowCmd)
	statusCmd.AddCommand(statusResourcesCmd)
	journalCmd.AddCommand(journalListCmd)
}
