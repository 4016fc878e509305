package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sshdeck/sshdeck/internal/commands"
)

var settingCmd = &cobra.Command{
	Use:   "setting",
	Short: "Manage application settings",
}

var settingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			settings, err := cmds.ListSettings(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for _, setting := range settings {
				fmt.Fprintf(w, "%s\t%s\n", setting.Key, setting.Value)
			}
			return w.Flush()
		})
	},
}

var settingGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			setting, err := cmds.GetSetting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(setting.Value)
			return nil
		})
	},
}

var settingSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			if err := cmds.UpdateSetting(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✓ %s = %s\n", args[0], args[1])
			return nil
		})
	},
}

func init() {
	settingCmd.AddCommand(settingListCmd)
	settingCmd.AddCommand(settingGetCmd)
	settingCmd.AddCommand(settingSetCmd)
	rootCmd.AddCommand(settingCmd)
}
