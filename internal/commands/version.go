package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastupload/tgupbench/internal/version"
)

// NewVersionCmd prints build information
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of tgupbench",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
		},
	}
}
