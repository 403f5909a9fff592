package dataset

import "github.com/matzehuels/crisprtower/pkg/tree"

// Schema identifies the layout of the other-events file.
type Schema int

const (
	// SchemaBase has only the contradiction, duplication and rearrangement
	// tables.
	SchemaBase Schema = iota
	// SchemaLegacy adds double gains and default-or-independent gains.
	SchemaLegacy
	// SchemaCurrent adds reacquisitions, independent gains and other
	// duplication events.
	SchemaCurrent
	// SchemaMixed carries the tables of both schemas. Independent gains of
	// the current schema override the legacy ones per node.
	SchemaMixed
)

func (s Schema) String() string {
	switch s {
	case SchemaLegacy:
		return "legacy"
	case SchemaCurrent:
		return "current"
	case SchemaMixed:
		return "mixed"
	default:
		return "base"
	}
}

// mapping binds a table of the other-events file to an event kind.
type mapping struct {
	table string
	kind  tree.EventKind
}

var baseTables = []mapping{
	{"rec_contra_dict", tree.Contradictions},
	{"rec_duplications_dict", tree.Duplications},
	{"rec_rearrangements_dict", tree.Rearrangements},
}

var legacyTables = []mapping{
	{"rec_double_gains_dict", tree.DoubleGains},
	{"rec_default_or_indep_gains_dict", tree.IndependentGains},
}

var currentTables = []mapping{
	{"rec_reacquisition_dict", tree.Reacquisitions},
	{"rec_indep_gain_dict", tree.IndependentGains},
	{"rec_other_dup_events_dict", tree.Dups},
}

// DetectSchema picks the schema whose tables are all present.
func DetectSchema(tables map[string]map[string]tree.EventList) Schema {
	has := func(ms []mapping) bool {
		for _, m := range ms {
			if _, ok := tables[m.table]; !ok {
				return false
			}
		}
		return true
	}
	switch {
	case has(currentTables) && has(legacyTables):
		return SchemaMixed
	case has(currentTables):
		return SchemaCurrent
	case has(legacyTables):
		return SchemaLegacy
	default:
		return SchemaBase
	}
}

// tables returns the event tables read under a schema.
func (s Schema) tables() []mapping {
	out := append([]mapping(nil), baseTables...)
	switch s {
	case SchemaLegacy:
		out = append(out, legacyTables...)
	case SchemaCurrent:
		out = append(out, currentTables...)
	case SchemaMixed:
		out = append(out, legacyTables...)
		out = append(out, currentTables...)
	}
	return out
}
