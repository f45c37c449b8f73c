// Package ctxparse flattens structured (JSON or YAML) alert metadata into
// dotted key/value fields.
package ctxparse

import (
	"bytes"
	"encoding/json"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Field is a flattened scalar with the 1-based line where its value appears.
type Field struct {
	Key   string
	Value string
	Line  int
}

// JSONFields flattens a JSON document. It returns nil when b is not valid
// JSON. JSON is a subset of YAML, so the YAML node tree supplies positions.
func JSONFields(b []byte) []Field {
	if !json.Valid(b) {
		return nil
	}
	return YAMLFields(b)
}

// YAMLFields flattens the scalars of a YAML document. Mapping keys are
// joined with '.', sequence items keep their parent's key. It returns nil
// when b does not parse or its root is not a mapping.
func YAMLFields(b []byte) []Field {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil
	}
	var out []Field
	var walk func(n *yaml.Node, path []string)
	walk = func(n *yaml.Node, path []string) {
		switch n.Kind {
		case yaml.DocumentNode, yaml.SequenceNode:
			for _, c := range n.Content {
				walk(c, path)
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				walk(n.Content[i+1], append(path[:len(path):len(path)], n.Content[i].Value))
			}
		case yaml.AliasNode:
			if n.Alias != nil {
				walk(n.Alias, path)
			}
		case yaml.ScalarNode:
			if len(path) > 0 {
				out = append(out, Field{Key: strings.Join(path, "."), Value: n.Value, Line: n.Line})
			}
		}
	}
	walk(&root, nil)
	return out
}

// Flatten returns the scalar fields of JSON or YAML metadata as a map. The
// first occurrence of a key wins. ok is false when b is neither.
func Flatten(b []byte) (fields map[string]string, ok bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, false
	}
	fs := JSONFields(b)
	if fs == nil {
		fs = YAMLFields(b)
	}
	if fs == nil {
		return nil, false
	}
	fields = make(map[string]string, len(fs))
	for _, f := range fs {
		if _, seen := fields[f.Key]; !seen {
			fields[f.Key] = f.Value
		}
	}
	return fields, true
}
