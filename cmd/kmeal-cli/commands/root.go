package commands

import (
	"context"
	"fmt"
	"os"

	"kmeal-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kmeal-cli",
	Short: "kmeal-cli crawls the koreatech portal for meal menus and exports them.",
}

var verbose *bool

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and raw request dumps.")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *verbose {
			telemetry.InitSlog(true)
		}
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
