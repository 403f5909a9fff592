package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/pkg/pipeline"
)

// layoutCommand creates the layout command for computing a scene.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		flags   settingFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [dataset-dir]",
		Short: "Compute the scene of a dataset",
		Long: `Compute the scene of a dataset.

The layout command reads a dataset folder, optimizes the branch scale, places
the tree, its event glyphs and the spacer arrays, and writes the resulting
scene. The scene is JSON unless the output ends in .bson, and can be rendered
to SVG/PNG/PDF with the 'visualize' command.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			opts.Config = &cfg
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <dataset>/<name>.scene.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	viewFlags(cmd, &opts.ViewOptions)
	flags.register(cmd)

	return cmd
}

// runLayout computes the scene and writes it.
func (c *CLI) runLayout(ctx context.Context, dir string, opts pipeline.Options, output string, noCache bool) error {
	if output == "" {
		output = filepath.Join(dir, datasetName(dir)+".scene.json")
	}
	format := pipeline.FormatJSON
	if strings.EqualFold(filepath.Ext(output), ".bson") {
		format = pipeline.FormatBSON
	}
	opts.Dataset = dir
	opts.Formats = []string{format}

	runner, err := c.newRunner(ctx, *opts.Config, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := os.WriteFile(output, result.Artifacts[format], 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(result.Stats, result.CacheInfo.SceneHit)
	printNewline()
	printNextStep("Render", appName+" visualize "+output)

	return nil
}

// datasetName returns the display name of a dataset folder.
func datasetName(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}
