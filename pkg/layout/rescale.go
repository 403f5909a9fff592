package layout

import (
	"math"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
)

type opKind int

const (
	opExtend opKind = iota
	opReduce
	opReset
	opTiny
	opFactor
)

// Op is a rescale operation.
type Op struct {
	kind   opKind
	factor float64
}

var (
	Extend = Op{kind: opExtend, factor: ExtendFactor}
	Reduce = Op{kind: opReduce, factor: ReduceFactor}
	// Reset returns to the optimizer's best scale.
	Reset = Op{kind: opReset}
	// Tiny jumps to the minimum scale.
	Tiny = Op{kind: opTiny}
)

// Factor multiplies the current scale by f.
func Factor(f float64) Op { return Op{kind: opFactor, factor: f} }

func (o Op) String() string {
	switch o.kind {
	case opExtend:
		return "extend"
	case opReduce:
		return "reduce"
	case opReset:
		return "reset"
	case opTiny:
		return "tiny"
	default:
		return "factor"
	}
}

// ParseOp maps a name to an operation.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "extend":
		return Extend, true
	case "reduce":
		return Reduce, true
	case "reset":
		return Reset, true
	case "tiny", "min":
		return Tiny, true
	}
	return Op{}, false
}

// Rescale changes the scale and re-runs the branch axis only. Relative
// steps are refused while arrays are collapsed.
func (v *View) Rescale(op Op) error {
	switch op.kind {
	case opExtend, opReduce:
		if v.collapsed {
			return errs.New(errs.ErrCodeLocked, "cannot %s while arrays are collapsed", op)
		}
		v.scale *= op.factor
	case opReset:
		v.scale = v.bestScale
	case opTiny:
		v.scale = v.minScale
	case opFactor:
		if op.factor <= 0 || math.IsNaN(op.factor) || math.IsInf(op.factor, 0) {
			return errs.New(errs.ErrCodeInvalidInput, "scale factor must be positive, got %v", op.factor)
		}
		v.scale *= op.factor
	}

	if v.cfg.Horizontal {
		v.placeBranches(func(n *ViewNode, b float64) { n.X = b })
	} else {
		v.placeBranches(func(n *ViewNode, b float64) { n.Y = b })
	}
	return nil
}
