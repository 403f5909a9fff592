package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/pkg/pipeline"
	"github.com/matzehuels/crisprtower/pkg/scene"
)

// visualizeCommand creates the visualize command for rendering a saved scene.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "visualize [scene.json]",
		Short: "Render a computed scene",
		Long: `Render a computed scene.

The visualize command takes a scene file (produced by 'layout', JSON or BSON)
and renders it to SVG, PNG or PDF. The scene contains all positioning
information, so this step is purely about rendering: colours, legend and
font size still come from the config.

Use 'render' as a shortcut to go directly from a dataset to images.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.commandConfig(cmd, nil)
			if err != nil {
				return err
			}
			opts.Config = &cfg
			opts.Formats = parseFormats(formatsStr)
			if len(opts.Formats) == 0 {
				opts.Formats = []string{pipeline.FormatSVG}
			}
			for _, f := range opts.Formats {
				if f == pipeline.FormatDOT || f == pipeline.FormatTreeSVG {
					return fmt.Errorf("format %s needs the dataset; use 'render' instead", f)
				}
			}
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runVisualize(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), pdf, png, json, bson (comma-separated)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "document title (default: scene file name)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runVisualize loads the scene and renders it.
func (c *CLI) runVisualize(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	s, err := scene.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load scene %s: %w", input, err)
	}

	base := sceneBase(input)
	opts.Dataset = input
	if opts.Title == "" {
		opts.Title = filepath.Base(base)
	}

	runner, err := c.newRunner(ctx, *opts.Config, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering scene...")
	spinner.Start()

	result := &pipeline.Result{Scene: s}
	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, result, opts)
	if err != nil {
		spinner.StopWithError("Visualization failed")
		return fmt.Errorf("visualize: %w", err)
	}
	spinner.Stop()

	return writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   opts.Formats,
		base:      base,
		output:    output,
		cacheHit:  cacheHit,
	})
}

// sceneBase strips the scene extensions from a path.
func sceneBase(path string) string {
	for _, ext := range []string{".scene.json", ".scene.bson", ".json", ".bson"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}
