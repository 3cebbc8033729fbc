package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Suryanshpandey5492/WebVision/pkg/config"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
)

// cli holds what the root command resolved for its subcommands.
type cli struct {
	cfgFile  string
	logLevel string
	cfg      config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "webvision",
		Short:         "Answer questions by browsing the web with a vision model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default ./webvision.yaml or ~/.webvision/webvision.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	root.AddCommand(newRunCmd(c), newServeCmd(c), newConfigCmd(c))
	return root
}

// load reads the configuration and sets up logging.
func (c *cli) load(cmd *cobra.Command) error {
	v, err := config.NewViper(c.cfgFile)
	if err != nil {
		return err
	}
	if err := v.BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return fmt.Errorf("bind log level flag: %w", err)
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	c.cfg = cfg
	logging.Configure(logging.Options{
		Level:   cfg.Log.Level,
		Dir:     cfg.Log.Dir,
		Console: cfg.Log.Console,
	})
	return nil
}
