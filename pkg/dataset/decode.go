package dataset

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/matzehuels/crisprtower/pkg/tree"
)

// decode unmarshals b into v keeping numbers as json.Number so that spacer
// ids keep their textual form.
func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// idString converts a decoded scalar into a spacer or node id.
func idString(v any) (string, error) {
	switch x := v.(type) {
	case json.Number:
		return x.String(), nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("expected number or string, got %T", v)
	}
}

// eventList converts a flat or nested JSON list into groups. A flat list is
// one group; in a nested list each sublist is a group and runs of scalars
// between sublists form groups of their own.
func eventList(v any) (tree.EventList, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		id, err := idString(v)
		if err != nil {
			return nil, err
		}
		return tree.Flat(id), nil
	}

	var out tree.EventList
	var scalars tree.Group
	for _, it := range items {
		sub, ok := it.([]any)
		if !ok {
			id, err := idString(it)
			if err != nil {
				return nil, err
			}
			scalars = append(scalars, id)
			continue
		}
		if len(scalars) > 0 {
			out = append(out, scalars)
			scalars = nil
		}
		var g tree.Group
		for _, s := range sub {
			id, err := idString(s)
			if err != nil {
				return nil, err
			}
			g = append(g, id)
		}
		out = append(out, g)
	}
	if len(scalars) > 0 {
		out = append(out, scalars)
	}
	return out, nil
}

// eventTable converts a node-name to event-list object.
func eventTable(raw map[string]any) (map[string]tree.EventList, error) {
	out := make(map[string]tree.EventList, len(raw))
	for node, v := range raw {
		l, err := eventList(v)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node, err)
		}
		out[node] = l
	}
	return out, nil
}

// metaValue decodes one typed metadata item of the form
// {"type": "int"|"float"|"str"|"list", "value": ...}. Elements of a list that
// fail to decode become nil; the first such error is returned alongside.
func metaValue(item any) (any, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", item)
	}
	typ, _ := m["type"].(string)
	val := m["value"]

	switch typ {
	case "int":
		s, err := idString(val)
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(s, 10, 64)
	case "float":
		s, err := idString(val)
		if err != nil {
			return nil, err
		}
		return strconv.ParseFloat(s, 64)
	case "str":
		if n, ok := val.(json.Number); ok {
			return n.String(), nil
		}
		return fmt.Sprint(val), nil
	case "list":
		items, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("list value is %T", val)
		}
		out := make([]any, len(items))
		var first error
		for i, it := range items {
			v, err := metaValue(it)
			if err != nil {
				if first == nil {
					first = err
				}
				v = nil
			}
			out[i] = v
		}
		return out, first
	default:
		return nil, fmt.Errorf("unexpected type %q", typ)
	}
}
