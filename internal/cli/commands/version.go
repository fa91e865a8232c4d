package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// String returns the one-line version banner.
func (b BuildInfo) String() string {
	s := "leapexpose v" + b.Version
	if b.GitCommit != "" && b.GitCommit != "unknown" {
		s += " (" + b.GitCommit
		if b.BuildDate != "" && b.BuildDate != "unknown" {
			s += ", built " + b.BuildDate
		}
		s += ")"
	}
	return s
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the leapexpose version, the commit it was built from and the Go runtime.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				_, err := fmt.Fprintf(out, "{\"version\":%q,\"commit\":%q,\"build_date\":%q,\"go\":%q}\n",
					info.Version, info.GitCommit, info.BuildDate, runtime.Version())
				return err
			}
			_, _ = fmt.Fprintln(out, info.String())
			_, _ = fmt.Fprintln(out, "Tableau lineage to dbt exposures")
			_, _ = fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON")
	return cmd
}
