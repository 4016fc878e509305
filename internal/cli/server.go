package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sshdeck/sshdeck/internal/commands"
	"github.com/sshdeck/sshdeck/internal/models"
	"github.com/sshdeck/sshdeck/internal/sshconfig"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage server records",
	Long:  `Create, list, update, and delete saved server connection records.`,
}

func serverFromFlags(cmd *cobra.Command) models.Server {
	name, _ := cmd.Flags().GetString("name")
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	username, _ := cmd.Flags().GetString("user")
	authType, _ := cmd.Flags().GetString("auth")
	password, _ := cmd.Flags().GetString("password")

	server := models.Server{
		Name:     name,
		Host:     host,
		Port:     port,
		Username: username,
		AuthType: models.AuthType(authType),
		Password: password,
	}
	if keyID, _ := cmd.Flags().GetInt64("key"); keyID > 0 {
		server.SSHKeyID = &keyID
	}
	return server
}

var serverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a server record",
	RunE: func(cmd *cobra.Command, args []string) error {
		server := serverFromFlags(cmd)

		return withCommands(func(cmds *commands.Commands) error {
			id, err := cmds.AddServer(cmd.Context(), server)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Added server %q (id %d)\n", server.Name, id)
			return nil
		})
	},
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all server records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			servers, err := cmds.ListServers(cmd.Context())
			if err != nil {
				return err
			}

			if len(servers) == 0 {
				fmt.Println("No servers found. Add one with: sshdeck server add")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHOST\tPORT\tUSER\tAUTH")
			for _, server := range servers {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
					server.ID, server.Name, server.Host, server.Port, server.Username, server.AuthType)
			}
			return w.Flush()
		})
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a server record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}

		return withCommands(func(cmds *commands.Commands) error {
			server, err := cmds.GetServer(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("Server: %s\n", server.Name)
			fmt.Printf("Host: %s:%d\n", server.Host, server.Port)
			fmt.Printf("User: %s\n", server.Username)
			fmt.Printf("Auth: %s\n", server.AuthType)
			if server.SSHKeyID != nil {
				fmt.Printf("Key ID: %d\n", *server.SSHKeyID)
			}
			fmt.Printf("Created: %s\n", server.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Updated: %s\n", server.UpdatedAt.Format(time.RFC3339))
			return nil
		})
	},
}

var serverUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a server record",
	Long:  `Update a server record. All fields are replaced, so pass every flag you want kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}

		server := serverFromFlags(cmd)
		server.ID = id

		return withCommands(func(cmds *commands.Commands) error {
			if err := cmds.UpdateServer(cmd.Context(), server); err != nil {
				return err
			}
			fmt.Printf("✓ Updated server %d\n", id)
			return nil
		})
	},
}

var serverRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a server record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[0])
		}

		return withCommands(func(cmds *commands.Commands) error {
			if err := cmds.DeleteServer(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted server %d\n", id)
			return nil
		})
	},
}

var serverImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import server records from ~/.ssh/config",
	Long: `Read Host blocks from the SSH config file and create a server record
for each one. Hosts without a User line, wildcard patterns, and hosts whose
name already matches an existing record are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(func(cmds *commands.Commands) error {
			sshDir, err := configManager.SSHDir()
			if err != nil {
				return err
			}
			manager := sshconfig.NewManager(sshDir)
			entries, err := manager.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No importable hosts found in", manager.ConfigPath())
				return nil
			}

			keys, err := cmds.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			keyByPath := make(map[string]int64, len(keys))
			for _, key := range keys {
				keyByPath[key.Path] = key.ID
			}

			servers, err := cmds.ListServers(cmd.Context())
			if err != nil {
				return err
			}
			taken := make(map[string]bool, len(servers))
			for _, server := range servers {
				taken[server.Name] = true
			}

			imported, skipped := 0, 0
			for _, entry := range entries {
				if entry.User == "" || taken[entry.Alias] {
					skipped++
					continue
				}

				host := entry.HostName
				if host == "" {
					host = entry.Alias
				}
				server := models.Server{
					Name:     entry.Alias,
					Host:     host,
					Port:     entry.Port,
					Username: entry.User,
					AuthType: models.AuthTypeKey,
				}
				if id, ok := keyByPath[entry.IdentityFile]; ok {
					server.SSHKeyID = &id
				}

				if _, err := cmds.AddServer(cmd.Context(), server); err != nil {
					return err
				}
				imported++
			}

			fmt.Printf("✓ Imported %d server(s), skipped %d\n", imported, skipped)
			return nil
		})
	},
}

var serverExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write server records to ~/.ssh/config",
	Long: `Write all server records into a marked section of the SSH config file
so plain ssh can use them. Content outside the section is left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		clearSection, _ := cmd.Flags().GetBool("clear")

		return withCommands(func(cmds *commands.Commands) error {
			sshDir, err := configManager.SSHDir()
			if err != nil {
				return err
			}
			manager := sshconfig.NewManager(sshDir)

			if clearSection {
				if err := manager.RemoveManagedSection(); err != nil {
					return err
				}
				fmt.Println("✓ Removed managed section from", manager.ConfigPath())
				return nil
			}

			servers, err := cmds.ListServers(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := cmds.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			keyPaths := make(map[int64]string, len(keys))
			for _, key := range keys {
				keyPaths[key.ID] = key.Path
			}

			if err := manager.Update(servers, keyPaths); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %d server(s) to %s\n", len(servers), manager.ConfigPath())
			return nil
		})
	},
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "display name for the server")
	cmd.Flags().String("host", "", "hostname or IP address")
	cmd.Flags().Int("port", models.DefaultPort, "SSH port")
	cmd.Flags().String("user", "", "username to connect as")
	cmd.Flags().String("auth", string(models.AuthTypeKey), "auth type: password or key")
	cmd.Flags().String("password", "", "password (auth type password only)")
	cmd.Flags().Int64("key", 0, "id of a registered SSH key (auth type key only)")
}

func init() {
	addServerFlags(serverAddCmd)
	addServerFlags(serverUpdateCmd)

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverShowCmd)
	serverCmd.AddCommand(serverUpdateCmd)
	serverCmd.AddCommand(serverRmCmd)
	serverExportCmd.Flags().Bool("clear", false, "remove the managed section instead of writing it")
	serverCmd.AddCommand(serverImportCmd)
	serverCmd.AddCommand(serverExportCmd)
	rootCmd.AddCommand(serverCmd)
}
