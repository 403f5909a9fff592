package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/pkg/buildinfo"
	"github.com/matzehuels/crisprtower/pkg/cache"
	"github.com/matzehuels/crisprtower/pkg/config"
	"github.com/matzehuels/crisprtower/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// redisPrefix namespaces every key written to a shared Redis.
const redisPrefix = appName + ":"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag. Empty means the XDG location.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "crisprtower draws CRISPR array ancestry trees",
		Long: `crisprtower lays out a reconstructed CRISPR array phylogeny: a scaled tree
whose branches carry spacer acquisition, deletion and other events, next to the
per-leaf spacer arrays aligned to a common template.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/crisprtower/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads --config, or the XDG config file when present.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	return config.LoadDefault()
}

// settingFlags are the config settings that can be overridden per command.
type settingFlags struct {
	horizontal bool
	pooling    bool
	innerTags  bool
	legend     bool
	center     bool
}

func (f *settingFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.horizontal, "horizontal", false, "lay the tree out left to right")
	cmd.Flags().BoolVar(&f.pooling, "pooling", false, "pool runs of consecutive spacer ids")
	cmd.Flags().BoolVar(&f.innerTags, "inner-tags", false, "label inner nodes")
	cmd.Flags().BoolVar(&f.legend, "legend", true, "draw the event legend")
	cmd.Flags().BoolVar(&f.center, "center", false, "place event glyphs at the branch center")
}

// apply copies the flags the user set onto cfg.
func (f *settingFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("horizontal") {
		cfg.Layout.Horizontal = f.horizontal
	}
	if changed("pooling") {
		cfg.Events.Pooling = f.pooling
	}
	if changed("inner-tags") {
		cfg.Layout.ShowInnerTags = f.innerTags
	}
	if changed("legend") {
		cfg.Render.Legend = f.legend
	}
	if changed("center") {
		cfg.Layout.ExtensionPos = "node"
		if f.center {
			cfg.Layout.ExtensionPos = "center"
		}
	}
}

// commandConfig loads the config and applies the command's overrides.
func (c *CLI) commandConfig(cmd *cobra.Command, f *settingFlags) (config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if f != nil {
		f.apply(cmd, &cfg)
	}
	return cfg, cfg.Validate()
}

// viewFlags registers the interactive view operations as flags.
func viewFlags(cmd *cobra.Command, vo *pipeline.ViewOptions) {
	cmd.Flags().StringSliceVar(&vo.Switched, "switch", nil, "reverse the children of these nodes (comma-separated names)")
	cmd.Flags().StringVar(&vo.Scale, "scale", "", "rescale: extend, reduce, reset, tiny or a factor")
	cmd.Flags().BoolVar(&vo.Collapsed, "collapse", false, "collapse singular spacer stretches")
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for the configured cache backend.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.TTL = cfg.Cache.TTL.Duration
	return r, nil
}

func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.Redis, redisPrefix)
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/crisprtower/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// An empty string leaves the choice to the config.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
