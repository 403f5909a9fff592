package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/geometry"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Events.PoolWidth != 60 || cfg.Scaling.Rounds != 300 || cfg.Layout.RowPitch != 52 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Array.SpacerSpacing != 41 || cfg.Array.SpacerWidth != 36 {
		t.Errorf("unexpected array defaults: %+v", cfg.Array)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[events]
pooling = false
bands = { losses = "top", gains = "bottom-branch" }

[scaling]
rounds = 100

[layout]
extension_pos = "center"
horizontal = false

[render]
formats = ["svg", "png"]
colors = { losses = "#ff0000" }

[cache]
backend = "none"
ttl = "1h"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Events.Pooling || cfg.Scaling.Rounds != 100 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Scaling.MinRatio != 0.33 {
		t.Errorf("unset keys should keep defaults, MinRatio = %v", cfg.Scaling.MinRatio)
	}
	if cfg.Cache.TTL.Duration != time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.LayoutConfig().Horizontal {
		t.Error("layout should be vertical")
	}

	g, err := cfg.GeometryConfig()
	if err != nil {
		t.Fatalf("GeometryConfig: %v", err)
	}
	if b, _ := g.BandOf(tree.Losses); b != geometry.BandTop {
		t.Errorf("losses band = %v, want top", b)
	}
	if b, _ := g.BandOf(tree.Gains); b != geometry.BandBottom {
		t.Errorf("gains band = %v, want bottom", b)
	}
	if b, _ := g.BandOf(tree.Dups); b != geometry.BandTop {
		t.Errorf("unlisted kinds should keep their band, dups = %v", b)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errs.Code
	}{
		{"syntax", "[events\n", errs.ErrCodeInvalidConfig},
		{"unknown key", "[layout]\nwobble = 1\n", errs.ErrCodeInvalidConfig},
		{"ratios", "[scaling]\nmin_ratio = 0.7\n", errs.ErrCodeInvalidConfig},
		{"rounds", "[scaling]\nrounds = 2\n", errs.ErrCodeInvalidConfig},
		{"extension pos", "[layout]\nextension_pos = \"left\"\n", errs.ErrCodeInvalidConfig},
		{"band", "[events]\nbands = { gains = \"side\" }\n", errs.ErrCodeUnknownBand},
		{"band kind", "[events]\nbands = { spacers = \"top\" }\n", errs.ErrCodeInvalidConfig},
		{"color kind", "[render]\ncolors = { spacers = \"red\" }\n", errs.ErrCodeInvalidConfig},
		{"redis without url", "[cache]\nbackend = \"redis\"\n", errs.ErrCodeInvalidConfig},
		{"backend", "[cache]\nbackend = \"s3\"\n", errs.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errs.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if !errs.Is(err, errs.ErrCodeFileNotFound) {
			t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
		}
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Layout.ShowInnerTags = true
	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Load(writeConfig(t, buf.String()))
	if err != nil {
		t.Fatalf("Load: %v\n%s", err, buf.String())
	}
	if !got.Layout.ShowInnerTags || got.Server.Timeout != cfg.Server.Timeout {
		t.Errorf("round trip lost settings: %+v", got)
	}
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/tmp/xdg", AppName, FileName) {
		t.Errorf("Path() = %q", p)
	}
}

func TestLoadDefaultWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Scaling.Rounds != Default().Scaling.Rounds {
		t.Errorf("LoadDefault() without a file should return defaults")
	}
}
