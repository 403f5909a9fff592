package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crisprtower/pkg/arrays"
	"github.com/matzehuels/crisprtower/pkg/cache"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// File suffixes of a dataset folder.
const (
	SuffixTree           = ".nwk"
	SuffixRecSpacers     = "_rec_spacers.json"
	SuffixTopOrder       = "_top_order.json"
	SuffixNamesToNumbers = "_spacer_names_to_numbers.json"
	SuffixGainsLosses    = "_rec_gains_losses.json"
	SuffixOtherEvents    = "_other_events.json"
	SuffixMetadata       = "_metadata.json"
)

// Suffixes lists every file suffix in read order.
var Suffixes = []string{
	SuffixTree,
	SuffixRecSpacers,
	SuffixTopOrder,
	SuffixNamesToNumbers,
	SuffixGainsLosses,
	SuffixOtherEvents,
	SuffixMetadata,
}

// Dataset is the decoded content of a dataset folder.
type Dataset struct {
	Dir    string
	Newick string

	// RecSpacers maps array names to 0/1 presence rows.
	RecSpacers map[string][]int
	// TopOrder lists original spacer names in template order.
	TopOrder []string
	// NamesToNumbers maps original spacer names to spacer numbers.
	NamesToNumbers map[string]string

	Gains  map[string]tree.EventList
	Losses map[string]tree.EventList
	// Other holds the tables of the other-events file by table name.
	Other  map[string]map[string]tree.EventList
	Schema Schema

	// Metadata maps spacer numbers to decoded metadata values.
	Metadata map[string]map[string]any

	// Files maps each suffix to the file that was read for it.
	Files map[string]string
	// Digest is a content hash of all files read.
	Digest string
}

// Load reads the dataset folder at dir. Only a missing tree file is an
// error; other missing files are logged and left empty.
func Load(ctx context.Context, dir string, logger *log.Logger) (*Dataset, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "dataset folder %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.ErrCodeInvalidPath, "%s is not a directory", dir)
	}

	d := &Dataset{
		Dir:            dir,
		RecSpacers:     map[string][]int{},
		NamesToNumbers: map[string]string{},
		Gains:          map[string]tree.EventList{},
		Losses:         map[string]tree.EventList{},
		Other:          map[string]map[string]tree.EventList{},
		Metadata:       map[string]map[string]any{},
		Files:          map[string]string{},
	}

	var digest bytes.Buffer
	for _, suffix := range Suffixes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := findFile(dir, suffix)
		if err != nil {
			return nil, err
		}
		if path == "" {
			if suffix == SuffixTree {
				return nil, errs.New(errs.ErrCodeFileNotFound, "no %s file in %s", suffix, dir)
			}
			logger.Warn("dataset file missing", "suffix", suffix, "dir", dir)
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		d.Files[suffix] = path
		digest.WriteString(suffix)
		digest.WriteByte(0)
		digest.Write(b)
		digest.WriteByte(0)

		if err := d.parse(suffix, b, logger); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidDataset, err, "decode %s", filepath.Base(path))
		}
		logger.Debug("read dataset file", "path", path, "bytes", len(b))
	}
	d.Schema = DetectSchema(d.Other)
	d.Digest = cache.Hash(digest.Bytes())
	return d, nil
}

// findFile returns the first match of "*suffix" in dir, or "" when none.
func findFile(dir, suffix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", suffix, err)
	}
	slices.Sort(matches)
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

func (d *Dataset) parse(suffix string, b []byte, logger *log.Logger) error {
	switch suffix {
	case SuffixTree:
		s := strings.TrimSpace(string(b))
		s = strings.TrimPrefix(s, `"`)
		d.Newick = strings.TrimSuffix(s, `"`)

	case SuffixRecSpacers:
		var raw struct {
			RecSpacers map[string][]int `json:"rec_spacers"`
		}
		if err := decode(b, &raw); err != nil {
			return err
		}
		if raw.RecSpacers != nil {
			d.RecSpacers = raw.RecSpacers
		}

	case SuffixTopOrder:
		var raw []any
		if err := decode(b, &raw); err != nil {
			return err
		}
		for i, v := range raw {
			s, err := idString(v)
			if err != nil {
				return fmt.Errorf("top order entry %d: %w", i, err)
			}
			d.TopOrder = append(d.TopOrder, s)
		}

	case SuffixNamesToNumbers:
		var raw map[string]any
		if err := decode(b, &raw); err != nil {
			return err
		}
		for name, v := range raw {
			s, err := idString(v)
			if err != nil {
				return fmt.Errorf("spacer %s: %w", name, err)
			}
			d.NamesToNumbers[name] = s
		}

	case SuffixGainsLosses:
		var raw struct {
			Gains  map[string]any `json:"rec_gains"`
			Losses map[string]any `json:"rec_losses"`
		}
		if err := decode(b, &raw); err != nil {
			return err
		}
		var err error
		if d.Gains, err = eventTable(raw.Gains); err != nil {
			return fmt.Errorf("rec_gains: %w", err)
		}
		if d.Losses, err = eventTable(raw.Losses); err != nil {
			return fmt.Errorf("rec_losses: %w", err)
		}

	case SuffixOtherEvents:
		var raw map[string]map[string]any
		if err := decode(b, &raw); err != nil {
			return err
		}
		for table, nodes := range raw {
			t, err := eventTable(nodes)
			if err != nil {
				return fmt.Errorf("%s: %w", table, err)
			}
			d.Other[table] = t
		}

	case SuffixMetadata:
		var raw map[string]map[string]any
		if err := decode(b, &raw); err != nil {
			return err
		}
		for spacer, items := range raw {
			m := make(map[string]any, len(items))
			for key, item := range items {
				v, err := metaValue(item)
				if err != nil {
					logger.Warn("undecodable metadata", "spacer", spacer, "key", key, "err", err)
					if _, isList := v.([]any); !isList {
						v = nil
					}
				}
				m[key] = v
			}
			d.Metadata[spacer] = m
		}
	}
	return nil
}

// Tree parses the Newick string and attaches every event table. A table
// entry applies to every node carrying that name; entries for names that do
// not occur in the tree are ignored.
func (d *Dataset) Tree() (*tree.Tree, error) {
	b, err := tree.ParseNewick(d.Newick)
	if err != nil {
		return nil, err
	}
	attach := func(kind tree.EventKind, table map[string]tree.EventList) {
		for name, l := range table {
			for _, id := range b.FindAll(name) {
				b.SetEvents(id, kind, l)
			}
		}
	}
	attach(tree.Gains, d.Gains)
	attach(tree.Losses, d.Losses)
	for _, m := range d.Schema.tables() {
		attach(m.kind, d.Other[m.table])
	}
	return b.Build()
}

// Model is everything the layout needs from a dataset.
type Model struct {
	Tree     *tree.Tree
	Template *arrays.Template
	Arrays   []arrays.Array
	Inserts  arrays.SingularInserts
	Collapse *arrays.Collapse
}

// Model builds the tree, the template and the leaf arrays, annotates the
// template with spacer frequencies and computes the collapse geometry.
func (d *Dataset) Model() (*Model, error) {
	t, err := d.Tree()
	if err != nil {
		return nil, err
	}
	tmpl, err := arrays.NewTemplate(d.TopOrder, d.NamesToNumbers, d.Metadata)
	if err != nil {
		return nil, err
	}
	arrs, err := arrays.LeafArrays(t, tmpl, d.RecSpacers)
	if err != nil {
		return nil, err
	}
	arrays.AddFrequencies(tmpl, arrs)
	ins := arrays.SingularLeafInserts(t)
	return &Model{
		Tree:     t,
		Template: tmpl,
		Arrays:   arrs,
		Inserts:  ins,
		Collapse: arrays.NewCollapse(tmpl, ins),
	}, nil
}
