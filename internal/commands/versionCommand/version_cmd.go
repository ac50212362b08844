package versioncommand

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redjax/syncrun/internal/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI's version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetPackageInfo())
		},
	}
}
