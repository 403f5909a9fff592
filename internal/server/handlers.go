package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/crisprtower/pkg/buildinfo"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/httputil"
	"github.com/matzehuels/crisprtower/pkg/pipeline"
	"github.com/matzehuels/crisprtower/pkg/scaling"
)

// DatasetEntry is one item of the dataset listing.
type DatasetEntry struct {
	Name string `json:"name"`
	Tree string `json:"tree"`
}

// DatasetInfo summarizes a dataset and its scale search.
type DatasetInfo struct {
	Name         string            `json:"name"`
	Schema       string            `json:"schema"`
	Digest       string            `json:"digest"`
	Files        map[string]string `json:"files"`
	Nodes        int               `json:"nodes"`
	Leaves       int               `json:"leaves"`
	Arrays       int               `json:"arrays"`
	Spacers      int               `json:"spacers"`
	Optimization scaling.Result    `json:"optimization"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Current()})
}

func (s *Server) formats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"formats": pipeline.FormatNames()})
}

// listDatasets returns every direct sub-directory of the data dir that
// holds a tree file.
func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.Server.DataDir)
	if err != nil {
		httputil.WriteError(w, r, s.logger, errs.Wrap(errs.ErrCodeNotFound, err, "read data dir"))
		return
	}
	out := []DatasetEntry{}
	for _, e := range entries {
		if !e.IsDir() || errs.ValidateDatasetName(e.Name()) != nil {
			continue
		}
		trees, _ := filepath.Glob(filepath.Join(s.cfg.Server.DataDir, e.Name(), "*"+dataset.SuffixTree))
		if len(trees) == 0 {
			continue
		}
		out = append(out, DatasetEntry{Name: e.Name(), Tree: filepath.Base(trees[0])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"datasets": out})
}

func (s *Server) datasetInfo(w http.ResponseWriter, r *http.Request) {
	name, dir, err := s.datasetDir(r)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	d, m, err := s.runner.Model(r.Context(), dir)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	opt, err := pipeline.Optimize(r.Context(), m, s.cfg)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	res := opt.Result
	res.Samples = nil
	httputil.WriteJSON(w, http.StatusOK, DatasetInfo{
		Name:         name,
		Schema:       d.Schema.String(),
		Digest:       d.Digest,
		Files:        relativeFiles(d.Files, dir),
		Nodes:        m.Tree.Len(),
		Leaves:       len(m.Tree.Leaves()),
		Arrays:       len(m.Arrays),
		Spacers:      m.Template.Len(),
		Optimization: res,
	})
}

func (s *Server) scene(w http.ResponseWriter, r *http.Request) {
	s.serveFormat(w, r, pipeline.FormatJSON)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	s.serveFormat(w, r, format)
}

// serveFormat runs the pipeline for one format and writes the artifact.
func (s *Server) serveFormat(w http.ResponseWriter, r *http.Request, format string) {
	opts, err := s.options(r, format)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	w.Header().Set("X-Run-ID", result.RunID)
	w.Header().Set("X-Cache", cacheStatus(result.CacheInfo))
	httputil.WriteBytes(w, pipeline.ContentTypes[format], result.Artifacts[format])
}

// options builds pipeline options from the route and query.
func (s *Server) options(r *http.Request, format string) (pipeline.Options, error) {
	name, dir, err := s.datasetDir(r)
	if err != nil {
		return pipeline.Options{}, err
	}
	collapsed, err := httputil.QueryBool(r, "collapse")
	if err != nil {
		return pipeline.Options{}, err
	}
	refresh, err := httputil.QueryBool(r, "refresh")
	if err != nil {
		return pipeline.Options{}, err
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		title = name
	}
	cfg := s.cfg
	return pipeline.Options{
		Dataset: dir,
		ViewOptions: pipeline.ViewOptions{
			Switched:  httputil.QueryList(r, "switch"),
			Scale:     r.URL.Query().Get("scale"),
			Collapsed: collapsed,
		},
		Formats: []string{format},
		Title:   title,
		Refresh: refresh,
		Config:  &cfg,
		Logger:  s.logger,
	}, nil
}

// datasetDir resolves the {name} route parameter below the data dir.
func (s *Server) datasetDir(r *http.Request) (name, dir string, err error) {
	name = chi.URLParam(r, "name")
	if err := errs.ValidateDatasetName(name); err != nil {
		return "", "", err
	}
	dir = filepath.Join(s.cfg.Server.DataDir, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", "", errs.New(errs.ErrCodeNotFound, "dataset %q", name)
	}
	return name, dir, nil
}

func relativeFiles(files map[string]string, dir string) map[string]string {
	out := make(map[string]string, len(files))
	for suffix, path := range files {
		if rel, err := filepath.Rel(dir, path); err == nil {
			path = rel
		}
		out[suffix] = path
	}
	return out
}

func cacheStatus(ci pipeline.CacheInfo) string {
	switch {
	case ci.RenderHit:
		return "hit"
	case ci.SceneHit:
		return "scene"
	default:
		return "miss"
	}
}
