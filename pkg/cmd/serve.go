package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/blobdrive/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP API and the blob gateway",
	// 覆盖根命令的 PersistentPreRunE，配置由 app.NewApp 加载
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.NewApp(configPath)
		if err != nil {
			return err
		}

		return a.Run()
	},
}

func registerServeCommand() {
	rootCmd.AddCommand(serveCmd)
}
