package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionShortFlag bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if versionShortFlag {
			cmd.Println(version)
			return
		}
		cmd.Printf("docchat version %s\n", version)
		if verboseFlag {
			cmd.Printf("  go:       %s\n", runtime.Version())
			cmd.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShortFlag, "short", false, "Print the version number only")
	rootCmd.AddCommand(versionCmd)
}
