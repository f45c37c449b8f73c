package alertlens

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/types"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the alertlens version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			rev := ""
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, s := range info.Settings {
					if s.Key == "vcs.revision" && len(s.Value) >= 7 {
						rev = " (" + s.Value[:7] + ")"
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alertlens %s%s, analysis %s\n", version, rev, types.AnalysisVersion)
		},
	})
}
