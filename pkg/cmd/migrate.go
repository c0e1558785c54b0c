package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/model"
	"github.com/yeisme/blobdrive/pkg/internal/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "create or update the files, share_links and activity_log tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.GetConfig()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		client, err := db.New(ctx, &cfg.DB, db.Options{})
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Migrate(ctx, model.All()...); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables on %s\n", len(model.All()), cfg.DB.GetDBType())

		return nil
	},
}

func registerMigrateCommand() {
	rootCmd.AddCommand(migrateCmd)
}
