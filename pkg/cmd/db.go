package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list all registered database types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")

			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+string(dbType))
			}
		},
	}

	dbPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "connect to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			cfg := configs.GetConfig().DB

			client, err := db.New(cmd.Context(), &cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.HealthCheck(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s ok\n", cfg.GetDBType())

			return nil
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd, dbPingCmd)
}
