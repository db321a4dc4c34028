package main

import (
	"fmt"
	"sort"

	"github.com/randalmurphal/codeflow/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and modify configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values and their sources",
	Run: func(cmd *cobra.Command, args []string) {
		resolved := config.NewResolver().Resolve()
		values := resolved.All()

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value, source := resolved.GetWithSource(key)
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-24s (%s)\n", key, value, source)
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resolved := config.NewResolver().Resolve()
		fmt.Fprintln(cmd.OutOrStdout(), resolved.Get(args[0]))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if local, _ := cmd.Flags().GetBool("local"); local {
			root := config.NewResolver().ProjectRoot()
			if root == "" {
				return fmt.Errorf("not inside a project: no .git directory found")
			}
			return config.SaveLocal(root, args[0], args[1])
		}
		return config.SaveGlobal(args[0], args[1])
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a key from the global configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.DeleteGlobalKey(args[0])
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configUnsetCmd)

	configSetCmd.Flags().Bool("local", false, "Write to .codeflow.yaml in the project root")
}
