package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sshdeck/sshdeck/internal/commands"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage SSH keys",
	Long:  `Register, generate, list, and delete SSH keys, and pick the default one.`,
}

var keyAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register an existing SSH key file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		isDefault, _ := cmd.Flags().GetBool("default")

		return withCommands(func(cmds *commands.Commands) error {
			id, err := cmds.AddKey(cmd.Context(), args[0], args[1], isDefault)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Added key %q (id %d)\n", args[0], id)
			return nil
		})
	},
}

var keyGenCmd = &cobra.Command{
	Use:   "gen <name>",
	Short: "Generate a new ed25519 SSH key",
	Long:  `Generate a new ed25519 key pair under the SSH directory using ssh-keygen.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			path, err := cmds.GenerateKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("✓ Generated key %q\n", args[0])
			fmt.Printf("  Private key: %s\n", path)
			fmt.Printf("  Public key: %s.pub\n", path)
			return nil
		})
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all SSH keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			keys, err := cmds.ListKeys(cmd.Context())
			if err != nil {
				return err
			}

			if len(keys) == 0 {
				fmt.Println("No keys found. Generate one with: sshdeck key gen <name>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPATH\tDEFAULT\tCREATED")
			for _, key := range keys {
				def := ""
				if key.IsDefault {
					def = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					key.ID, key.Name, key.Path, def, key.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		})
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of an SSH key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}

		return withCommands(func(cmds *commands.Commands) error {
			key, err := cmds.GetKey(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("Key: %s\n", key.Name)
			fmt.Printf("Path: %s\n", key.Path)
			if key.Fingerprint != "" {
				fmt.Printf("Fingerprint: %s\n", key.Fingerprint)
			}
			fmt.Printf("Default: %v\n", key.IsDefault)
			fmt.Printf("Created: %s\n", key.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Updated: %s\n", key.UpdatedAt.Format(time.RFC3339))
			return nil
		})
	},
}

var keyDefaultCmd = &cobra.Command{
	Use:   "default <id>",
	Short: "Make a key the default for new connections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}

		return withCommands(func(cmds *commands.Commands) error {
			if err := cmds.SetDefaultKey(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Key %d is now the default\n", id)
			return nil
		})
	},
}

var keyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an SSH key record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}
		deleteFile, _ := cmd.Flags().GetBool("delete-file")

		return withCommands(func(cmds *commands.Commands) error {
			if err := cmds.DeleteKey(cmd.Context(), id, deleteFile); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted key %d\n", id)
			if deleteFile {
				fmt.Println("  Key files removed from disk")
			}
			return nil
		})
	},
}

func init() {
	keyAddCmd.Flags().Bool("default", false, "mark this key as the default")
	keyRmCmd.Flags().Bool("delete-file", false, "also delete the key files from disk")

	keyCmd.AddCommand(keyAddCmd)
	keyCmd.AddCommand(keyGenCmd)
	keyCmd.AddCommand(keyListCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyDefaultCmd)
	keyCmd.AddCommand(keyRmCmd)
	rootCmd.AddCommand(keyCmd)
}
