package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sshdeck/sshdeck/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("limit")

		cfg := configManager.Get()
		auditLogger, err := audit.NewLogger(configManager.DataDir(), cfg.AuditMaxEntries)
		if err != nil {
			return err
		}

		entries := auditLogger.Recent(n)
		if len(entries) == 0 {
			fmt.Println("No audit entries yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tEVENT\tACTION\tRESOURCE")
		for _, entry := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				entry.Timestamp.Format("2006-01-02 15:04:05"), entry.EventType, entry.Action, entry.Resource)
		}
		return w.Flush()
	},
}

func init() {
	auditCmd.Flags().Int("limit", 20, "number of entries to show")
	rootCmd.AddCommand(auditCmd)
}
