// Command shield runs the online safety-verification layer between a motion
// planner and a robot motor controller: it reads a YAML configuration, tracks
// a long-term trajectory, and publishes one verified motion per control cycle,
// substituting a failsafe braking motion whenever a continuation cannot be
// proven collision-safe.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "shield",
	Short:        "Online safety-verification shield for human-robot workspaces",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shield %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
