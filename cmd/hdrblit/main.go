package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version     = "0.1.0"
	cfgFile     string
	backendFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hdrblit",
	Short: "HDR-aware desktop capture",
	Long: `hdrblit composites every display attached to the desktop into one
tone-mapped standard-range image, the same path an intercepted BitBlt uses.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hdrblit v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is hdrblit.yaml in the config directory)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "capture backend: d3d11 or soft (overrides config)")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
