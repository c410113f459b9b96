package cli

import (
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause dispute filing and resolution on the running service",
	Run: func(cmd *cobra.Command, args []string) {
		callAdmin("/admin/pause", nil)
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume dispute filing and resolution on the running service",
	Run: func(cmd *cobra.Command, args []string) {
		callAdmin("/admin/unpause", nil)
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)
}
