package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/godbrigero/napoleon/pkg"
	"github.com/godbrigero/napoleon/pkg/grid"
	"github.com/godbrigero/napoleon/pkg/nplog"
	"github.com/godbrigero/napoleon/pkg/pathfinding"
	"github.com/godbrigero/napoleon/pkg/pathplot"
	"github.com/godbrigero/napoleon/pkg/trajectory"
)

func parseFloats(value string, count int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != count {
		return nil, eris.Errorf("expected %d comma separated values but got %q", count, value)
	}

	result := make([]float64, count)
	for idx, part := range parts {
		number, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid number in %q", value)
		}
		result[idx] = number
	}

	return result, nil
}

func getCell(cmd *cobra.Command, name string) (grid.Cell, error) {
	values, err := cmd.Flags().GetIntSlice(name)
	if err != nil {
		return grid.Cell{}, err
	}

	if len(values) != 2 {
		return grid.Cell{}, eris.Errorf("--%s expects x,y", name)
	}
	return grid.Cell{X: values[0], Y: values[1]}, nil
}

// addDynamicObjects reads x,y,vx,vy (meters relative to the grid center, m/s)
func addDynamicObjects(g *grid.HybridGrid, specs []string, horizonMs float64) (int, error) {
	objects := make([]*trajectory.DynamicObject, 0, len(specs))
	for _, spec := range specs {
		values, err := parseFloats(spec, 4)
		if err != nil {
			return 0, eris.Wrap(err, "invalid --dynamic value")
		}

		velocity := r2.Vec{X: values[2], Y: values[3]}
		objects = append(objects, trajectory.NewDynamicObject(velocity, r2.Vec{X: values[0], Y: values[1]}, velocity, r2.Vec{}, 1))
	}

	return trajectory.Project(g, objects, horizonMs, horizonMs/10), nil
}

// addFields reads x,y,radius,intensity in cells
func addFields(g *grid.HybridGrid, specs []string) error {
	for _, spec := range specs {
		values, err := parseFloats(spec, 4)
		if err != nil {
			return eris.Wrap(err, "invalid --field value")
		}

		g.AddUncertaintyField(orb.Point{values[0], values[1]}, values[2], values[3])
	}

	return nil
}

var pathCmd = &cobra.Command{
	Use:   "path FILE",
	Short: "Plans a path on a grid file and prints the resulting trajectory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		start, err := getCell(cmd, "from")
		if err != nil {
			return err
		}

		end, err := getCell(cmd, "to")
		if err != nil {
			return err
		}

		styleName, err := flags.GetString("style")
		if err != nil {
			return err
		}

		style, err := pathfinding.ParseNodePickStyle(styleName)
		if err != nil {
			return err
		}

		step, err := flags.GetInt("step")
		if err != nil {
			return err
		}

		clearance, err := flags.GetInt("clearance")
		if err != nil {
			return err
		}

		maxExpansions, err := flags.GetInt("max-expansions")
		if err != nil {
			return err
		}

		robotW, err := flags.GetFloat64("robot-w")
		if err != nil {
			return err
		}

		robotH, err := flags.GetFloat64("robot-h")
		if err != nil {
			return err
		}

		maxSpeed, err := flags.GetFloat64("max-speed")
		if err != nil {
			return err
		}

		accel, err := flags.GetFloat64("accel")
		if err != nil {
			return err
		}

		dt, err := flags.GetFloat64("dt")
		if err != nil {
			return err
		}

		flat, err := flags.GetBool("flat")
		if err != nil {
			return err
		}

		plotFile, err := flags.GetString("plot")
		if err != nil {
			return err
		}

		dynamic, err := flags.GetStringArray("dynamic")
		if err != nil {
			return err
		}

		horizon, err := flags.GetFloat64("horizon")
		if err != nil {
			return err
		}

		fields, err := flags.GetStringArray("field")
		if err != nil {
			return err
		}

		file, err := grid.Load(args[0])
		if err != nil {
			return err
		}

		g, err := file.Hybrid()
		if err != nil {
			return err
		}

		count, err := addDynamicObjects(g, dynamic, horizon)
		if err != nil {
			return err
		}
		if count > 0 {
			nplog.Log(ctx).Debug().Msgf("Projected %d dynamic object positions", count)
		}

		if err := addFields(g, fields); err != nil {
			return err
		}

		opts := pathfinding.Options{
			Style:         style,
			StepSize:      step,
			Clearance:     clearance,
			MaxExpansions: maxExpansions,
		}
		if robotW > 0 || robotH > 0 {
			// the planner works in cells
			square := g.SquareSizeMeters()
			radius := pathfinding.NewRadiusSearch(robotW/square, robotH/square, false, 1, 10)
			opts.Radius = &radius
		}

		cells, err := pathfinding.NewAStar(g, opts).Path(ctx, start, end)
		if err != nil {
			return err
		}

		if plotFile != "" {
			if err := pathplot.Save(g, cells, plotFile); err != nil {
				return err
			}
			nplog.Log(ctx).Info().Str("path", plotFile).Msgf("Saved plot to %s", plotFile)
		}

		timed, err := trajectory.FromCells(g, cells, maxSpeed, accel)
		if err != nil {
			return err
		}

		poses := trajectory.PosesAlong(timed, dt)
		out := cmd.OutOrStdout()
		if flat {
			values := trajectory.FlattenPoses(poses)
			parts := make([]string, len(values))
			for idx, value := range values {
				parts[idx] = strconv.FormatFloat(value, 'f', -1, 64)
			}

			fmt.Fprintln(out, strings.Join(parts, " "))
			return nil
		}

		pkg.PrintTask(fmt.Sprintf("Path from %s to %s", start, end))
		pkg.PrintSubtask(fmt.Sprintf("%d cells, %.3f m, %.2f s", len(cells),
			pathfinding.Length(cells, g.SquareSizeMeters()), timed.TotalTime()))
		for _, pose := range poses {
			fmt.Fprintf(out, "%8.3f %8.3f %8.3f\n", pose.Translation.X, pose.Translation.Y, pose.Heading())
		}
		return nil
	},
}

func init() {
	flags := pathCmd.Flags()
	flags.IntSlice("from", nil, "start cell as x,y")
	flags.IntSlice("to", nil, "goal cell as x,y")
	flags.String("style", "all", "neighbour selection: all (8 neighbours) or sides (4 neighbours)")
	flags.Int("step", 1, "distance between neighbours in cells")
	flags.Int("clearance", 0, "minimum distance to walls in cells")
	flags.Int("max-expansions", 0, "abort the search after expanding this many nodes (0 = unlimited)")
	flags.Float64("robot-w", 0, "robot width in meters; enables avoidance of dynamic objects")
	flags.Float64("robot-h", 0, "robot height in meters")
	flags.Float64("max-speed", 4, "maximum speed in m/s")
	flags.Float64("accel", 3, "acceleration in m/s²")
	flags.Float64("dt", 0.1, "sampling interval of the printed trajectory in seconds")
	flags.Bool("flat", false, "print the poses as a flat list of x, y, m11, m12, m21, m22 values")
	flags.String("plot", "", "save a PNG of the grid and the path to this file")
	flags.StringArray("dynamic", nil, "moving obstacle as x,y,vx,vy in meters relative to the grid center (repeatable)")
	flags.Float64("horizon", 1000, "how far dynamic obstacles are projected in milliseconds")
	flags.StringArray("field", nil, "uncertainty field as x,y,radius,intensity in cells (repeatable)")
	cobra.CheckErr(pathCmd.MarkFlagRequired("from"))
	cobra.CheckErr(pathCmd.MarkFlagRequired("to"))

	rootCmd.AddCommand(pathCmd)
}
