package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/pkg/dataset"
	"github.com/matzehuels/crisprtower/pkg/pipeline"
)

// watchDebounce coalesces the burst of events an editor produces on save.
const watchDebounce = 200 * time.Millisecond

// renderCommand creates the render command (dataset → images in one step).
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
		watch      bool
		flags      settingFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [dataset-dir]",
		Short: "Render a dataset to SVG, PNG, PDF, JSON, BSON or DOT",
		Long: `Render a dataset to SVG, PNG, PDF, JSON, BSON or DOT.

The render command runs the whole pipeline: load the dataset folder, optimize
the branch scale, lay the tree out and write every requested format. Formats
are rendered concurrently. PNG and PDF need rsvg-convert on PATH.

With --watch the dataset folder is watched and the outputs are rewritten
whenever one of its files changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			opts.Config = &cfg
			opts.Dataset = args[0]
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), cfg, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			run := func() error { return c.runRender(cmd.Context(), runner, opts, output) }
			if !watch {
				return run()
			}
			if err := run(); err != nil {
				printError("%v", err)
			}
			return c.watch(cmd.Context(), args[0], run)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): "+strings.Join(pipeline.FormatNames(), ", ")+" (comma-separated, default from config)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "document title (default: dataset folder name)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-render when the dataset changes")
	viewFlags(cmd, &opts.ViewOptions)
	flags.register(cmd)

	return cmd
}

// runRender executes the pipeline once and writes the artifacts.
func (c *CLI) runRender(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, output string) error {
	prog := newProgress(c.Logger)

	spinner := newSpinnerWithContext(ctx, "Rendering "+datasetName(opts.Dataset)+"...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   formatsOf(result.Artifacts, opts.Formats),
		base:      filepath.Join(opts.Dataset, datasetName(opts.Dataset)),
		output:    output,
		cacheHit:  result.CacheInfo.RenderHit,
		stats:     result.Stats,
	}); err != nil {
		return err
	}
	prog.done("Rendered " + datasetName(opts.Dataset))
	return nil
}

// formatsOf returns the requested formats, or the rendered ones in sorted
// order when the request was left to the config.
func formatsOf(artifacts map[string][]byte, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	var out []string
	for _, f := range pipeline.FormatNames() {
		if _, ok := artifacts[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// artifactWriteParams describes where rendered artifacts go.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	// base is the default path without extension.
	base     string
	output   string
	cacheHit bool
	stats    pipeline.Stats
}

// writeArtifacts writes one file per format. A single format goes to
// output verbatim; several formats share output as their base path.
func writeArtifacts(p artifactWriteParams) error {
	var paths []string
	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			return fmt.Errorf("no %s artifact was rendered", format)
		}
		path := p.output
		if path == "" || len(p.formats) > 1 {
			path = basePath(p.output, p.base) + "." + format
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	printSuccess("Render complete")
	for _, path := range paths {
		printFile(path)
	}
	printStats(p.stats, p.cacheHit)
	return nil
}

// basePath derives the base output path. If output is empty, def is used.
// A known format extension on output is stripped, longest first.
func basePath(output, def string) string {
	if output == "" {
		return def
	}
	names := pipeline.FormatNames()
	slices.SortFunc(names, func(a, b string) int { return len(b) - len(a) })
	for _, f := range names {
		if strings.HasSuffix(output, "."+f) {
			return strings.TrimSuffix(output, "."+f)
		}
	}
	return output
}

// watch calls run whenever a dataset file in dir changes, until ctx is done.
func (c *CLI) watch(ctx context.Context, dir string, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	printInfo("Watching %s (Ctrl+C to stop)", dir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDatasetFile(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			c.Logger.Debug("dataset changed", "file", ev.Name, "op", ev.Op)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		case <-fire:
			if err := run(); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				printError("%v", err)
			}
		}
	}
}

// isDatasetFile reports whether name is one of the files a dataset is read
// from. Rendered outputs in the same folder do not match.
func isDatasetFile(name string) bool {
	for _, suffix := range dataset.Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
