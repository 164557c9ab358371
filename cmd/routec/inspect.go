package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/dispatch"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Validate an artifact and print a header summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			table, err := dispatch.Load(data)
			if err != nil {
				return err
			}
			h := table.Header()

			handlers, params := 0, 0
			for i := uint64(0); i < h.NodeCount; i++ {
				off := artifact.NodeOffset(h.NodesOff, i)
				n := artifact.DecodeNode(data[off : off+artifact.NodeRecordBytes])
				if n.HasHandler() {
					handlers++
				}
				if n.IsParam() {
					params++
				}
			}

			var static []string
			for m := artifact.MethodGET; m <= artifact.MethodTRACE; m++ {
				if h.StaticMethods&artifact.MethodBit(m) != 0 {
					static = append(static, m.Token())
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format version: %d\n", h.Version)
			fmt.Fprintf(out, "size:           %d bytes\n", table.Size())
			fmt.Fprintf(out, "nodes:          %d (%d with handlers, %d parameters)\n",
				h.NodeCount, handlers, params)
			fmt.Fprintf(out, "index entries:  %d\n", h.IndexCount)
			fmt.Fprintf(out, "string pool:    %d bytes\n", h.StringsLen)
			fmt.Fprintf(out, "metadata pool:  %d bytes\n", h.MetaLen)
			if h.HasPrefilter() {
				fmt.Fprintf(out, "prefilter:      %d bytes, static methods: %s\n",
					h.PrefilterLen, strings.Join(static, " "))
			} else {
				fmt.Fprintf(out, "prefilter:      none\n")
			}
			return nil
		},
	}
}
