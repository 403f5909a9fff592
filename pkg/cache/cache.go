// Package cache provides the layout and artifact cache used by the pipeline.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON envelope per key under a directory, for the CLI
//   - [RedisCache]: shared cache for the HTTP API
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so that callers never build key strings by hand.
// Layout keys hash the dataset digest together with everything that changes
// node coordinates; artifact keys hash the scene together with the render
// settings.
package cache

import (
	"context"
	"time"
)

// Default time-to-live per entry type.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache stores opaque byte values with an optional TTL. A zero TTL never
// expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	// Clear removes all entries and reports how many were removed.
	Clear(ctx context.Context) (int, error)
}

// LayoutKeyOpts are the settings that change a scene.
type LayoutKeyOpts struct {
	// ConfigHash hashes the events, scaling, layout and array settings.
	ConfigHash string   `json:"config_hash"`
	Switched   []string `json:"switched,omitempty"`
	Scale      string   `json:"scale,omitempty"`
	Collapsed  bool     `json:"collapsed,omitempty"`
}

// ArtifactKeyOpts are the settings that change a rendered file.
type ArtifactKeyOpts struct {
	Format   string            `json:"format"`
	Title    string            `json:"title,omitempty"`
	Legend   bool              `json:"legend,omitempty"`
	Colors   map[string]string `json:"colors,omitempty"`
	FontSize float64           `json:"font_size,omitempty"`
	PNGScale float64           `json:"png_scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	LayoutKey(datasetHash string, opts LayoutKeyOpts) string
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(datasetHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", datasetHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}
