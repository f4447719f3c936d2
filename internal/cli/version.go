package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/cppcell/internal/ir"
)

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version        string `json:"version"`
	JournalVersion string `json:"journal_version"`
	GoVersion      string `json:"go_version"`
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("cppcell %s (journal v%s, %s)", v.Version, v.JournalVersion, v.GoVersion)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the cppcell version",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version:        ir.Version,
				JournalVersion: ir.JournalVersion,
				GoVersion:      runtime.Version(),
			}
			return rootOpts.formatter(cmd).Success(info)
		},
	}
}
