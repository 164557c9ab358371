package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/routewire/go-routetable/compiler"
)

func newCompileCmd(root *rootOptions) *cobra.Command {
	var (
		manifestPath string
		outPath      string
		noPrefilter  bool
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a YAML route manifest into a route table artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			var opts []compiler.Option
			if noPrefilter {
				opts = append(opts, compiler.WithoutPrefilter())
			}
			data, err := compiler.Compile(m, opts...)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			root.log.Infow("compiled route table",
				"manifest", manifestPath, "out", outPath,
				"routes", len(m), "bytes", len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "routes.yaml", "route manifest to compile")
	cmd.Flags().StringVarP(&outPath, "out", "o", "routes.rtbl", "artifact output path")
	cmd.Flags().BoolVar(&noPrefilter, "no-prefilter", false, "omit the static-route prefilter region")
	return cmd
}
