package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// Group commands
var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups and clones",
}

var groupApplyCmd = &cobra.Command{
	Use:   "apply GROUP",
	Short: "Apply a group, and the clone wrapping it, as a whole",
	Long: `Apply a group with one cibadmin command. A group wrapped in a clone is
applied together with the clone. --order sets the child order; children it
does not name keep their place after the named ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, _ := cmd.Flags().GetStringSlice("order")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		a, err := mgr.ApplyGroup(cmd.Context(), args[0], order, dryRun)
		if err != nil {
			return err
		}
		if err := a.Wait(); err != nil {
			return fmt.Errorf("failed to apply group %s: %v", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Group applied: %s\n", args[0])
		return nil
	},
}

var groupRemoveCmd = &cobra.Command{
	Use:   "remove GROUP",
	Short: "Remove a group with its constraints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		a, err := mgr.RemoveGroup(cmd.Context(), args[0], dryRun)
		if err != nil {
			return err
		}
		if err := a.Wait(); err != nil {
			return fmt.Errorf("failed to remove group %s: %v", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Group removed: %s\n", args[0])
		return nil
	},
}

var groupConnectCmd = &cobra.Command{
	Use:   "connect RSC WITH",
	Short: "Colocate RSC with WITH and start it after WITH",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		a, err := mgr.Connect(cmd.Context(), args[0], args[1], dryRun)
		if err != nil {
			return err
		}
		if err := a.Wait(); err != nil {
			return fmt.Errorf("failed to connect %s with %s: %v", args[0], args[1], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s connected with %s\n", args[0], args[1])
		return nil
	},
}

var groupSetMasterCmd = &cobra.Command{
	Use:   "set-master CLONE true|false",
	Short: "Turn a new clone into a master/slave clone or back",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid master flag %q", args[1])
		}

		mgr, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer closeSession(mgr)

		if err := mgr.SetMaster(args[0], master); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Clone %s master=%t\n", args[0], master)
		return nil
	},
}

func init() {
	groupCmd.AddCommand(groupApplyCmd)
	groupCmd.AddCommand(groupRemoveCmd)
	groupCmd.AddCommand(groupConnectCmd)
	groupCmd.AddCommand(groupSetMasterCmd)

	groupApplyCmd.Flags().StringSlice("order", nil, "Child order")
	for _, c := range []*cobra.Command{groupApplyCmd, groupRemoveCmd, groupConnectCmd} {
		c.Flags().Bool("dry-run", false, "Apply to a shadow CIB and simulate")
	}
}
