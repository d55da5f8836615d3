package cli

import (
	"github.com/spf13/cobra"
)

func buildRootCmdWith(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "koboldswitch",
		Short:         "Run and switch koboldcpp models behind a REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "Config file (.json, .yaml, .toml); defaults KOBOLDSWITCH_CONFIG or config.json")
	pf.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "Log format: json|console")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(cmd.ErrOrStderr(), opts.LogLevel, opts.LogFormat)
		if err != nil {
			return err
		}
		opts.log = l
		return nil
	}

	root.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newStartCmd(opts),
		newStopCmd(opts),
		newModelsCmd(opts),
		newConfigCmd(opts),
	)
	return root
}
