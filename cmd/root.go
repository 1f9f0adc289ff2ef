package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/tiller/cmd/gen"
	"github.com/luma/tiller/internal/meta"
)

var rootCmd = &cobra.Command{
	Use:   "tiller",
	Short: "Dual-mode command protocol service",
	Long: `Tiller serves a command catalog over a byte stream, speaking
either an interactive text console or a compact binary packet protocol.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := meta.GetInfo()

		fmt.Printf("tiller %s\n", info.Version)
		fmt.Printf("  build:     %s (%s)\n", info.Build, info.Branch)
		fmt.Printf("  built at:  %s\n", info.BuildTime)
		fmt.Printf("  platform:  %s\n", info.Platform)
		fmt.Printf("  go:        %s\n", info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(StartCmd)
	rootCmd.AddCommand(SendCmd)
	rootCmd.AddCommand(StatsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
