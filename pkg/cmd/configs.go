package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configs.InitConfig(configPath)
		},
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configs.GetViper().ConfigFileUsed()
			if cfg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used (defaults and EPCGUARD_* env only)")

				return
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg)
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				configs.GetViper().Debug()
			}

			return printJSON(cmd.OutOrStdout(), configs.GetConfig())
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "check the config against its constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.Validate(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}
)

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	configCmd.AddCommand(pathCmd, debugCmd, validateCmd)

	rootCmd.AddCommand(configCmd)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
