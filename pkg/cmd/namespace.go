package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	"github.com/yeisme/blobdrive/pkg/internal/vfs"
)

var nsInit bool

// namespaceCmd 打印身份对应的容器与租户目录，--init 时确保容器存在.
var namespaceCmd = &cobra.Command{
	Use:   "namespace <identity>",
	Short: "show the container that backs an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.GetConfig()

		identity := vfs.NormalizeIdentity(args[0])
		if identity == "" {
			return fmt.Errorf("identity must not be empty")
		}

		container := vfs.ContainerName(cfg.Storage.ContainerPrefix, identity)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "identity: ", identity)
		fmt.Fprintln(out, "container:", container)
		fmt.Fprintln(out, "folder:   ", vfs.TenantFolder(identity))

		if !nsInit {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		backend, err := blob.Open(ctx, &cfg.Storage, cfg.CircuitBreaker)
		if err != nil {
			return err
		}
		defer backend.Close()

		reg := vfs.NewRegistry(backend, nil, vfs.Config{ContainerPrefix: cfg.Storage.ContainerPrefix})
		if _, err := reg.Open(ctx, identity); err != nil {
			return err
		}

		fmt.Fprintln(out, "container ready")

		return nil
	},
}

func registerNamespaceCommand() {
	namespaceCmd.Flags().BoolVar(&nsInit, "init", false, "create the container if it does not exist")
	rootCmd.AddCommand(namespaceCmd)
}
