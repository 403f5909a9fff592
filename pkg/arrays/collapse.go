package arrays

// Default column metrics, in pixels.
const (
	DefaultSpacerWidth   = 36.0
	DefaultSpacerSpacing = 41.0
)

// TemplateRow names the template in column lookups.
const TemplateRow = "template"

// Config holds the column metrics of the array panel.
type Config struct {
	SpacerWidth   float64 `json:"spacer_width" toml:"spacer_width"`
	SpacerSpacing float64 `json:"spacer_spacing" toml:"spacer_spacing"`
}

// DefaultConfig returns the default column metrics.
func DefaultConfig() Config {
	return Config{SpacerWidth: DefaultSpacerWidth, SpacerSpacing: DefaultSpacerSpacing}
}

// Width returns the pixel width of n columns.
func (c Config) Width(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n-1)*c.SpacerSpacing + c.SpacerWidth
}

// X returns the left edge of a (possibly fractional) column.
func (c Config) X(col float64) float64 { return col * c.SpacerSpacing }

// StretchGeometry describes how one stretch packs when collapsed. Arrays are
// keyed by leaf name.
type StretchGeometry struct {
	Stretch Stretch `json:"stretch" bson:"stretch"`
	// Order is the rank of each array by first appearance in the stretch.
	Order map[string]int `json:"order" bson:"order"`
	// Length is the span of each array's columns inside the stretch.
	Length map[string]int `json:"length" bson:"length"`
	// Shift is how many columns each array's cells move left.
	Shift map[string]int `json:"shift" bson:"shift"`
	// MaxLen is the packed width of the stretch in columns.
	MaxLen int `json:"max_len" bson:"max_len"`
	// Saved is the number of columns the stretch gives up.
	Saved int `json:"saved" bson:"saved"`
}

// CollapseGeometry computes the packed geometry of each stretch. Each array
// keeps its relative layout and is staggered by one column per rank.
func CollapseGeometry(stretches []Stretch, owner map[string]string) []StretchGeometry {
	out := make([]StretchGeometry, 0, len(stretches))
	for _, st := range stretches {
		g := StretchGeometry{
			Stretch: st,
			Order:   make(map[string]int),
			Length:  make(map[string]int),
			Shift:   make(map[string]int),
		}
		lo := make(map[string]int)
		hi := make(map[string]int)
		for _, e := range st {
			arr := owner[e.Name]
			if _, ok := g.Order[arr]; !ok {
				g.Order[arr] = len(g.Order)
				lo[arr] = e.Index
			}
			lo[arr] = min(lo[arr], e.Index)
			hi[arr] = max(hi[arr], e.Index)
		}
		for arr, rank := range g.Order {
			g.Length[arr] = hi[arr] - lo[arr] + 1
			g.Shift[arr] = lo[arr] - st.First() - rank
			g.MaxLen = max(g.MaxLen, g.Length[arr]+rank)
		}
		g.Saved = len(st) - g.MaxLen
		out = append(out, g)
	}
	return out
}

// Collapse is the column mapping of the array panel with all singular
// stretches packed.
type Collapse struct {
	Stretches []StretchGeometry `json:"stretches" bson:"stretches"`
	Columns   int               `json:"columns" bson:"columns"`
	Saved     int               `json:"saved" bson:"saved"`

	owner map[string]string
}

// NewCollapse analyses tmpl against the singular insertions of a tree.
func NewCollapse(tmpl *Template, ins SingularInserts) *Collapse {
	stretches := FindSingularStretches(tmpl, ins.Set())
	c := &Collapse{
		Stretches: CollapseGeometry(stretches, ins.Owner),
		owner:     ins.Owner,
	}
	for _, g := range c.Stretches {
		c.Saved += g.Saved
	}
	c.Columns = tmpl.Len() - c.Saved
	return c
}

// Empty reports whether there is nothing to collapse.
func (c *Collapse) Empty() bool { return len(c.Stretches) == 0 }

// Column returns the collapsed column of the cell for spacer name at template
// index in the given row (a leaf name or [TemplateRow]). Cells inside a
// stretch are visible only in the row that owns them.
func (c *Collapse) Column(row, name string, index int) (col float64, visible bool) {
	col = float64(index)
	for _, g := range c.Stretches {
		if g.Stretch.Contains(name) {
			if row == TemplateRow || c.owner[name] != row {
				return col, false
			}
			col -= float64(g.Shift[row])
			continue
		}
		if index > g.Stretch.Last() {
			col -= float64(len(g.Stretch) - g.MaxLen)
		}
	}
	return col, true
}

// Width returns the pixel width of the collapsed panel.
func (c *Collapse) Width(cfg Config) float64 { return cfg.Width(c.Columns) }
