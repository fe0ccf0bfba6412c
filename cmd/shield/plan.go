package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hri-lab/shield-engine/internal/planner"
)

var (
	planVel        float64
	planAcc        float64
	planVe         float64
	planAMax       float64
	planJMax       float64
	planSampleTime float64
)

// planCmd prints a bounded-jerk profile sample by sample, for tuning bounds
// offline.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute and print a failsafe braking profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := planner.PlanSafetyShield(0, planVel, planAcc, planVe, planAMax, planJMax)
		if err != nil {
			return err
		}
		duration := path.Duration()
		fmt.Printf("# duration %.6fs\n", duration)
		fmt.Println("# t,s,ds,dds")
		for t := 0.0; t <= duration+planSampleTime/2; t += planSampleTime {
			pos, vel, acc := path.At(t)
			fmt.Printf("%.4f,%.6f,%.6f,%.6f\n", t, pos, vel, acc)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Float64Var(&planVel, "vel", 1.0, "Start path velocity")
	planCmd.Flags().Float64Var(&planAcc, "acc", 0.0, "Start path acceleration")
	planCmd.Flags().Float64Var(&planVe, "ve", 0.0, "Terminal path velocity")
	planCmd.Flags().Float64Var(&planAMax, "a-max", 10.0, "Path acceleration bound")
	planCmd.Flags().Float64Var(&planJMax, "j-max", 400.0, "Path jerk bound")
	planCmd.Flags().Float64Var(&planSampleTime, "sample-time", 0.004, "Print step, seconds")
}
