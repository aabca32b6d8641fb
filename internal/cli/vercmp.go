package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"archupdates/pkg/vercmp"
)

var vercmpCmd = &cobra.Command{
	Use:   "vercmp <version1> <version2>",
	Short: "Compare two package versions",
	Long: `Compare two versions the way pacman does and print -1, 0 or 1 when
the first version is older than, equal to or newer than the second.

Examples:
  archupdates vercmp 1.0-1 1.0-2      # -1
  archupdates vercmp 1:1.0 2.0        # 1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), vercmp.Compare(args[0], args[1]))
		return err
	},
}
