package tree

import (
	"regexp"
	"strconv"
	"strings"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
)

const (
	floatPattern = `\s*[+-]?\d+\.?\d*(?:[eE][-+]?\d+)?\s*`
	namePattern  = `[^():,;]+?`
	nhxPattern   = `\[&&NHX:[^\]]*\]`
)

var (
	// Leaves must be named; internal and single nodes may omit the name.
	leafMatcher     = regexp.MustCompile(`^\s*(` + namePattern + `)\s*(:` + floatPattern + `)?\s*(` + nhxPattern + `)?\s*$`)
	internalMatcher = regexp.MustCompile(`^\s*(` + namePattern + `)?\s*(:` + floatPattern + `)?\s*(` + nhxPattern + `)?\s*$`)

	controlChars = regexp.MustCompile(`[\n\r\t]+`)
)

type nodeRole int

const (
	roleLeaf nodeRole = iota
	roleInternal
	roleSingle
)

// Parse reads a Newick string and returns the finished tree without
// annotations.
func Parse(newick string) (*Tree, error) {
	b, err := ParseNewick(newick)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// ParseNewick reads a Newick string into a builder so callers can attach
// events by node name before building. Errors carry
// [errs.ErrCodeInvalidNewick] and no partial tree is returned.
func ParseNewick(newick string) (*Builder, error) {
	nw := strings.TrimSpace(newick)
	if !strings.HasSuffix(nw, ";") {
		return nil, errs.New(errs.ErrCodeInvalidNewick, "newick string must end with ';'")
	}

	b := NewBuilder()
	root := b.AddRoot("", 0)

	if !strings.HasPrefix(nw, "(") {
		if err := readNodeData(b, nw[:len(nw)-1], root, roleSingle); err != nil {
			return nil, err
		}
		return b, nil
	}

	if strings.Count(nw, "(") != strings.Count(nw, ")") {
		return nil, errs.New(errs.ErrCodeInvalidNewick, "parentheses do not match")
	}
	nw = controlChars.ReplaceAllString(nw, "")

	current := NoNode
	for _, chunk := range strings.Split(nw, "(")[1:] {
		if current == NoNode {
			if b.Len() > 1 {
				return nil, errs.New(errs.ErrCodeInvalidNewick, "unexpected data after root at %q", chunk)
			}
			current = root
		} else {
			current = b.AddChild(current, "", 0)
		}

		subchunks := strings.Split(chunk, ",")
		for i := range subchunks {
			subchunks[i] = strings.TrimSpace(subchunks[i])
		}
		if last := subchunks[len(subchunks)-1]; last != "" && !strings.HasSuffix(last, ";") {
			return nil, errs.New(errs.ErrCodeInvalidNewick, "broken newick structure at %q", chunk)
		}

		for i, leaf := range subchunks {
			if leaf == "" && i == len(subchunks)-1 {
				continue
			}
			if current == NoNode {
				return nil, errs.New(errs.ErrCodeInvalidNewick, "unexpected data after root at %q", leaf)
			}
			closing := strings.Split(leaf, ")")
			if err := readNodeData(b, closing[0], current, roleLeaf); err != nil {
				return nil, err
			}
			for _, internal := range closing[1:] {
				if current == NoNode {
					return nil, errs.New(errs.ErrCodeInvalidNewick, "unexpected closing parenthesis in %q", leaf)
				}
				internal = strings.TrimRight(internal, ";")
				if err := readNodeData(b, internal, current, roleInternal); err != nil {
					return nil, err
				}
				current = b.Parent(current)
			}
		}
	}
	return b, nil
}

func readNodeData(b *Builder, data string, current NodeID, role nodeRole) error {
	data = strings.TrimSpace(data)
	if data == "" {
		if role == roleLeaf {
			return errs.New(errs.ErrCodeInvalidNewick, "empty leaf node found")
		}
		return nil
	}

	matcher := internalMatcher
	if role == roleLeaf {
		matcher = leafMatcher
	}
	m := matcher.FindStringSubmatch(data)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return errs.New(errs.ErrCodeInvalidNewick, "unexpected newick format %q", truncate(data, 50))
	}

	node := current
	if role == roleLeaf {
		node = b.AddChild(current, "", 0)
	}
	if name := strings.TrimSpace(m[1]); name != "" {
		b.SetName(node, name)
	}
	if m[2] != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(m[2][1:]), 64)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidNewick, err, "invalid distance in %q", data)
		}
		b.SetDistance(node, d)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Newick serializes the tree with names and non-zero distances.
func (t *Tree) Newick() string {
	var sb strings.Builder
	t.writeNewick(&sb, t.root)
	sb.WriteByte(';')
	return sb.String()
}

func (t *Tree) writeNewick(sb *strings.Builder, id NodeID) {
	n := &t.nodes[id]
	if len(n.Children) > 0 {
		sb.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			t.writeNewick(sb, c)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(n.Name)
	if n.Distance != 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(n.Distance, 'g', -1, 64))
	}
}
