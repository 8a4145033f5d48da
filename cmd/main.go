package cmd

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/godbrigero/napoleon/pkg/config"
	"github.com/godbrigero/napoleon/pkg/nplog"
)

// settings is populated before any sub command runs
var settings *config.Config

var rootCmd = &cobra.Command{
	Use:   "napoleon",
	Short: "Path planning and build tools for the robot",
	Long: `This command bundles the tools around the path planner.
This includes building the vendored dependencies, inspecting grid files and planning paths on them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// looked up on the root so commands without flag parsing work as well
		files, err := cmd.Root().PersistentFlags().GetStringSlice("settings")
		if err != nil {
			return err
		}

		settings, err = config.Load(files...)
		if err != nil {
			return err
		}
		debugLogging = settings.Log.Debug

		logger, err := newLogger(settings, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		cmd.SetContext(nplog.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func newLogger(cfg *config.Config, stderr io.Writer) (*zerolog.Logger, error) {
	var out io.Writer
	if cfg.Log.JSON {
		out = stderr
	} else {
		out = NewConsoleWriter(stderr)
	}

	if cfg.Log.File != "" {
		logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to open log file %s", cfg.Log.File)
		}

		// the file lives as long as the process
		out = zerolog.MultiLevelWriter(out, logFile)
	}

	logger := zerolog.New(out).Level(cfg.LogLevel()).With().Timestamp().Logger()
	return &logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringSlice("settings", nil, "settings files to read (default napoleon.toml)")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
