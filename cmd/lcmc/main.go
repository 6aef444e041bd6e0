package main

import (
	"fmt"
	"os"

	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lcmc",
	Short: "LCMC - cluster resource and constraint console",
	Long: `LCMC edits Pacemaker resources, groups, clones and resource-set
constraints, and applies them to the cluster with cibadmin.

Session state (resources, constraint placeholders and the journal of
commands sent to the cluster) lives in the data directory.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(level),
			JSONOutput: jsonOutput,
		})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"LCMC version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("node-id", "console-1", "Session node ID")
	flags.String("data-dir", "./lcmc-data", "Data directory for session state")
	flags.String("dc-host", "", "Host receiving CRM commands when the status names no DC")
	flags.String("status", "", "Cluster status YAML file")
	flags.String("remote-shell", "", `Command prefix running CRM commands on the DC, e.g. "ssh -o BatchMode=yes"`)
	flags.Bool("print", false, "Print CRM commands instead of running them")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(placeholderCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(sessionCmd)
}
