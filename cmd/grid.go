package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godbrigero/napoleon/pkg"
	"github.com/godbrigero/napoleon/pkg/grid"
	"github.com/godbrigero/napoleon/pkg/nplog"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Inspects and converts grid files",
}

var gridInfoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Prints the dimensions of a grid file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, err := cmd.Flags().GetBool("strict")
		if err != nil {
			return err
		}

		file, err := grid.Load(args[0])
		if err != nil {
			return err
		}

		descriptor, err := file.Descriptor()
		if err != nil {
			return err
		}

		if strict {
			if err := descriptor.Validate(); err != nil {
				return err
			}
		}

		hybrid, err := file.Hybrid()
		if err != nil {
			return err
		}

		width, height := hybrid.Size()
		dropped := len(descriptor.StaticObstacles()) - hybrid.StaticObstacleCount()
		if dropped > 0 {
			nplog.Log(cmd.Context()).Warn().Str("path", args[0]).Msgf("%d walls of %s lie outside the grid", dropped, args[0])
		}

		pkg.PrintTask(args[0])
		pkg.PrintSubtask(fmt.Sprintf("%d x %d squares of %.3f m", width, height, descriptor.SquareSizeMeters()))
		pkg.PrintSubtask(fmt.Sprintf("grid size: %d squares, %.3f m wide, %d pixels",
			descriptor.GridSize(), descriptor.GridSizeMeters(), descriptor.GridSizePixels()))
		pkg.PrintSubtask(fmt.Sprintf("center: %s", hybrid.Center()))
		pkg.PrintSubtask(fmt.Sprintf("walls: %d", hybrid.StaticObstacleCount()))
		return nil
	},
}

var gridConvertCmd = &cobra.Command{
	Use:   "convert IN OUT",
	Short: "Converts a grid file between JSON and YAML and (de)compresses it",
	Long: `The formats are determined by the file extensions: .json, .yaml or .yml optionally
followed by .br or .xz.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := grid.Load(args[0])
		if err != nil {
			return err
		}

		if err := grid.Save(args[1], file); err != nil {
			return err
		}

		nplog.Log(cmd.Context()).Info().Str("path", args[1]).Msgf("Wrote %s", args[1])
		return nil
	},
}

func init() {
	gridInfoCmd.Flags().Bool("strict", false, "reject grids with invalid dimensions or walls")

	gridCmd.AddCommand(gridInfoCmd)
	gridCmd.AddCommand(gridConvertCmd)
	rootCmd.AddCommand(gridCmd)
}
