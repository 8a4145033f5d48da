package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/godbrigero/napoleon/pkg"
	"github.com/godbrigero/napoleon/pkg/deps"
	"github.com/godbrigero/napoleon/pkg/nplog"
	"github.com/godbrigero/napoleon/pkg/storage"
)

var buildDepsCmd = &cobra.Command{
	Use:   "build-deps",
	Short: "Clones and builds the dependencies listed in an INI manifest",
	Long: `Each section of the manifest names a dependency. Sections with build_dynamically enabled
are cloned into <root>/vendor, built and their artifacts are copied into <root>/build.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath, err := cmd.Flags().GetString("config-file-path")
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		pruneStale, err := cmd.Flags().GetBool("prune-stale")
		if err != nil {
			return err
		}

		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pkg.PrintTask("Loading manifest")
		manifest, err := deps.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		var stamps deps.StampStore
		if !dryRun {
			store, err := storage.Open(ctx, settings.Stamps)
			if err != nil {
				return err
			}
			defer store.Close()
			stamps = store
		}

		opts := deps.Options{
			Root:                settings.Workspace.Root,
			VendorDir:           settings.Workspace.Vendor,
			BuildDir:            settings.Workspace.Build,
			GitExe:              settings.Git.Exe,
			DefaultBuildCommand: settings.Build.Command,
			DefaultArtifacts:    settings.Build.Artifacts,
			DryRun:              dryRun,
			PruneStale:          pruneStale,
			ShowProgress:        !settings.CI,
		}
		if verbose {
			opts.Echo = cmd.OutOrStdout()
		}

		pkg.PrintTask("Building dependencies")
		err = deps.NewBuilder(opts, stamps).Run(ctx, manifest)
		if err != nil {
			nplog.Log(ctx).Error().Err(err).Msg("Dependency build failed")
			return err
		}

		pkg.PrintTask("Done")
		return nil
	},
}

var depsStatusCmd = &cobra.Command{
	Use:   "deps-status",
	Short: "Lists the recorded dependency builds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := os.Stat(settings.Stamps); err != nil {
			pkg.PrintError(fmt.Sprintf("No builds recorded in %s", settings.Stamps))
			return nil
		}

		store, err := storage.Open(ctx, settings.Stamps)
		if err != nil {
			return err
		}
		defer store.Close()

		var stamps []*storage.Stamp
		if len(args) > 0 {
			stamps, err = store.History(ctx, args[0])
		} else {
			stamps, err = store.ListStamps(ctx)
		}
		if err != nil {
			return err
		}

		out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(out, "NAME\tSTATUS\tCOMMIT\tBUILT\tARTIFACTS")
		for _, stamp := range stamps {
			status := "ok"
			if !stamp.Success {
				status = "failed"
			}

			commit := stamp.Commit
			if len(commit) > 10 {
				commit = commit[:10]
			}

			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", stamp.Name, status, commit,
				stamp.BuiltAt.Local().Format("2006-01-02 15:04"), strings.Join(stamp.Artifacts, ", "))
		}

		return out.Flush()
	},
}

func init() {
	buildDepsCmd.Flags().String("config-file-path", "", "INI manifest listing the dependencies")
	buildDepsCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	buildDepsCmd.Flags().Bool("prune-stale", false, "remove older versions of the copied artifacts")
	buildDepsCmd.Flags().BoolP("verbose", "v", false, "print the output of the build commands")
	cobra.CheckErr(buildDepsCmd.MarkFlagRequired("config-file-path"))

	rootCmd.AddCommand(buildDepsCmd)
	rootCmd.AddCommand(depsStatusCmd)
}
