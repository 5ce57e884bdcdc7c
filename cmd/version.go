package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("centralino %s (commit=%s, built=%s, %s)\n", Version, CommitSHA, BuildDate, runtime.Version())
		},
	}
}
