package main

import (
	"fmt"
	"os"

	"github.com/kballard/go-shellquote"
	"github.com/rasto/lcmc-sub002/pkg/composite"
	"github.com/rasto/lcmc-sub002/pkg/crm"
	"github.com/rasto/lcmc-sub002/pkg/manager"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// executor builds the CRM command executor selected by the root flags
func executor(cmd *cobra.Command) (crm.Executor, error) {
	if p, _ := cmd.Flags().GetBool("print"); p {
		return &crm.PrintExecutor{Out: cmd.OutOrStdout()}, nil
	}
	remote, _ := cmd.Flags().GetString("remote-shell")
	if remote == "" {
		return &crm.ShellExecutor{}, nil
	}
	prefix, err := shellquote.Split(remote)
	if err != nil {
		return nil, fmt.Errorf("invalid --remote-shell: %v", err)
	}
	return &crm.ShellExecutor{Prefix: prefix}, nil
}

// openSession opens the session in the data directory and installs the
// cluster status given with --status
func openSession(cmd *cobra.Command) (*manager.Manager, error) {
	nodeID, _ := cmd.Flags().GetString("node-id")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	dcHost, _ := cmd.Flags().GetString("dc-host")
	statusFile, _ := cmd.Flags().GetString("status")

	exec, err := executor(cmd)
	if err != nil {
		return nil, err
	}

	mgr, err := manager.NewManager(&manager.Config{
		NodeID:    nodeID,
		DataDir:   dataDir,
		DCHost:    dcHost,
		Composite: composite.DefaultConfig(),
	}, exec)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %v", err)
	}

	if statusFile != "" {
		snap, err := status.LoadSnapshot(statusFile)
		if err != nil {
			mgr.Shutdown()
			return nil, err
		}
		mgr.UpdateStatus(snap)
	}
	return mgr, nil
}

// printYAML writes v as a YAML document
func printYAML(cmd *cobra.Command, v interface{}) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %v", err)
	}
	return enc.Close()
}

func closeSession(mgr *manager.Manager) {
	if err := mgr.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
