package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tonescope",
	Short: "Emotional tone analysis with counter-perspective recommendations",
	Long: `tonescope scores the emotional framing of a video transcript or article text
and suggests three sources that contrast with it.

Configuration is read from the environment (and a .env file when present).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, analyzeCmd, keysCmd, cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
