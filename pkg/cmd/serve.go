package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hsk3232/DevelopProject/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP server, scheduler and event listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.NewApp(configPath)
		if err != nil {
			return err
		}

		return a.Run(cmd.Context())
	},
}

func registerServeCommand() {
	rootCmd.AddCommand(serveCmd)
}
