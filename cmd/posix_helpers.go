package cmd

import (
	"github.com/spf13/cobra"

	"github.com/godbrigero/napoleon/pkg/fsutil"
)

// The build runner executes these in-process; the commands expose the same
// implementation to scripts that run outside of it.
func posixCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		// fsutil parses the POSIX style flags itself
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fsutil.Exec("", append([]string{name}, args...))
		},
	}
}

func init() {
	rootCmd.AddCommand(posixCommand("mv", "Cross-platform implementation of the POSIX mv command"))
	rootCmd.AddCommand(posixCommand("rm", "A cross-platform implementation of the POSIX rm command (-r, -f)"))
	rootCmd.AddCommand(posixCommand("mkdir", "A cross-platform implementation of the POSIX mkdir command (-p)"))
}
