package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sshdeck/sshdeck/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up and restore the data directory",
	Long:  `Create zip archives of the database and audit log, and restore from them.`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")

		manager := backup.NewManager(configManager.DataDir())
		path, err := manager.Create(label)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Backup written to %s\n", path)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := backup.NewManager(configManager.DataDir())
		backups, err := manager.List()
		if err != nil {
			return err
		}

		if len(backups) == 0 {
			fmt.Println("No backups found. Create one with: sshdeck backup create")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%d B\t%s\n", b.Name, b.Size, b.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore the data directory from a backup",
	Long: `Restore the database and audit log from a backup archive. Stop any
running sshdeck server first so nothing holds the database open.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := backup.NewManager(configManager.DataDir())
		if err := manager.Restore(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Restored from %s\n", args[0])
		return nil
	},
}

var backupRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a backup archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := backup.NewManager(configManager.DataDir())
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted backup %s\n", args[0])
		return nil
	},
}

func init() {
	backupCreateCmd.Flags().String("label", "", "label appended to the backup filename")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupRmCmd)
	rootCmd.AddCommand(backupCmd)
}
