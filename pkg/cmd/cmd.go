// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/log"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "blobdrive",
		Short:         "Per-user virtual file system on top of object storage",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		// 子命令共用的配置加载；serve 自行初始化
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			log.Init()

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print viper debug output")

	registerServeCommand()
	registerConfigsCommands()
	registerDriversCommand()
	registerNamespaceCommand()
	registerMigrateCommand()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
