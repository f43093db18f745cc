// Package cmd 提供 epcguard 命令行入口.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hsk3232/DevelopProject/pkg/app"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

var (
	configPath string
	debug      bool
	logLevel   string

	rootCmd = &cobra.Command{
		Use:          "epcguard",
		Short:        "Supply-chain EPC scan log anomaly detection",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				_ = os.Setenv("EPCGUARD_SERVER_DEBUG", "true")
				_ = os.Setenv("EPCGUARD_LOG_LEVEL", "debug")
			}

			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level for one-shot commands")

	registerServeCommand()
	registerFileCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// withCore 初始化运行时执行 fn，结束后释放资源.
func withCore(ctx context.Context, fn func(*app.Core) error) error {
	core, err := app.Bootstrap(ctx, configPath)
	if err != nil {
		return err
	}

	defer func() { _ = core.Close(context.WithoutCancel(ctx)) }()

	if logLevel != "" {
		if err := nlog.SetLevel(logLevel); err != nil {
			return err
		}
	}

	return fn(core)
}
