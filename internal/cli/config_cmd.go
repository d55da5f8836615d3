package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"koboldswitch/internal/common/fsutil"
	"koboldswitch/internal/config"
)

func newConfigCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("config requires a subcommand: init|check")
		},
	}

	var basePath, binary string
	initCmd := &cobra.Command{
		Use:     "init",
		Short:   "Write a configuration template",
		Example: "  koboldswitch config init --base-path ~/llms --config ~/.config/koboldswitch/config.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Template()
			cfg.Binary = binary
			if basePath != "" {
				p, err := fsutil.ExpandHome(basePath)
				if err != nil {
					return err
				}
				if cfg.BasePath, err = filepath.Abs(p); err != nil {
					return err
				}
			}
			if err := config.Write(opts.ConfigPath, cfg); err != nil {
				return fmt.Errorf("write %s: %w", opts.ConfigPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.ConfigPath)
			return nil
		},
	}
	initCmd.Flags().StringVar(&basePath, "base-path", "", "Models directory to record in the template")
	initCmd.Flags().StringVar(&binary, "binary", "", "koboldcpp executable, relative to the base path or absolute")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if cfg, err = config.Validate(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: base_path=%s addr=%s\n", cfg.BasePath, cfg.Addr)
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}
