package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	"github.com/yeisme/blobdrive/pkg/internal/storage/db"
	"github.com/yeisme/blobdrive/pkg/internal/storage/kv"
	"github.com/yeisme/blobdrive/pkg/internal/storage/mq"
)

var driversCmd = &cobra.Command{
	Use:     "drivers",
	Short:   "list registered storage, database, kv and event bus drivers",
	Aliases: []string{"ls"},
	// 只读取注册表，不需要配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		printList(out, "Blob storage drivers:", blob.Drivers())

		dbTypes := make([]string, 0)
		for _, t := range db.GetRegisteredDBTypes() {
			dbTypes = append(dbTypes, string(t))
		}

		printList(out, "Database types:", dbTypes)

		kvTypes := make([]string, 0)
		for _, t := range kv.GetRegisteredKVTypes() {
			kvTypes = append(kvTypes, string(t))
		}

		printList(out, "KV types:", kvTypes)
		printList(out, "Event bus types:", mq.Types())
	},
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintln(w, title)

	for _, it := range items {
		fmt.Fprintln(w, "   - "+it)
	}
}

func registerDriversCommand() {
	rootCmd.AddCommand(driversCmd)
}
