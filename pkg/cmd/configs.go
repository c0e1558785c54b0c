package cmd

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/rule"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect and check the loaded configuration",
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			used := ""
			if v := configs.GetViper(); v != nil {
				used = v.ConfigFileUsed()
			}

			if used == "" {
				used = "(none, defaults and " + configs.EnvPrefix + "_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)

			return nil
		},
	}

	// show 输出合并后的配置，凭据一律打码.
	configShowCmd = &cobra.Command{
		Use:     "show",
		Aliases: []string{"debug"},
		Short:   "print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				if v := configs.GetViper(); v != nil {
					v.Debug()
				}
			}

			b, err := sonic.ConfigStd.MarshalIndent(configs.GetConfig().Redacted(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "check field rules and that the signing key decodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()

			if err := rule.ValidateStruct(cfg); err != nil {
				fields := rule.Errors(err)
				if fields == nil {
					return err
				}

				names := make([]string, 0, len(fields))
				for f := range fields {
					names = append(names, f)
				}

				sort.Strings(names)

				for _, f := range names {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f, fields[f])
				}

				return fmt.Errorf("%d invalid config fields", len(fields))
			}

			if _, err := signer.New(cfg.Signing); err != nil {
				return fmt.Errorf("signing: %w", err)
			}

			if cfg.Signing.AccountKey == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: signing.account_key is empty, download links are issued unsigned")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}
)

func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
