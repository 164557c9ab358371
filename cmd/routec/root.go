package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	verbose bool
	log     *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "routec",
		Short:         "Compile, inspect and seal route table artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if opts.verbose {
				cfg = zap.NewDevelopmentConfig()
			}
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			opts.log = log.Sugar()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newCompileCmd(opts))
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newSealCmd(opts))
	cmd.AddCommand(newVerifyCmd())
	return cmd
}
