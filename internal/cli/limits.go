package cli

import (
	"github.com/spf13/cobra"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Manage per-device price limits",
}

var limitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsList()
	},
}

var limitsAddCmd = &cobra.Command{
	Use:   "add <device> <lower> <upper>",
	Short: "Add a device with a price band",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsAdd(args[0], args[1], args[2])
	},
}

var limitsSetCmd = &cobra.Command{
	Use:   "set <device> <lower> <upper>",
	Short: "Replace a device's price band",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsSet(args[0], args[1], args[2])
	},
}

var limitsSetGeneralCmd = &cobra.Command{
	Use:   "set-general <cutoff>",
	Short: "Replace the general price cutoff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsSetGeneral(args[0])
	},
}

var limitsRemoveCmd = &cobra.Command{
	Use:   "remove <device>",
	Short: "Remove a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsRemove(args[0])
	},
}

var limitsShowCmd = &cobra.Command{
	Use:   "show <device>",
	Short: "Mark a device visible",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsSetVisible(args[0], true)
	},
}

var limitsHideCmd = &cobra.Command{
	Use:   "hide <device>",
	Short: "Hide a device without dropping its limits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().LimitsSetVisible(args[0], false)
	},
}

func init() {
	limitsCmd.AddCommand(limitsListCmd)
	limitsCmd.AddCommand(limitsAddCmd)
	limitsCmd.AddCommand(limitsSetCmd)
	limitsCmd.AddCommand(limitsSetGeneralCmd)
	limitsCmd.AddCommand(limitsRemoveCmd)
	limitsCmd.AddCommand(limitsShowCmd)
	limitsCmd.AddCommand(limitsHideCmd)
}
