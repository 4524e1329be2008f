package extract

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// metadata is the parsed leading metadata block of a document.
type metadata struct {
	title    string
	hasTitle bool
}

// splitFrontmatter separates a leading metadata block from the body.
//
// The block must open with a "---" line and close with another "---" line.
// ok is false when there is no block or it is malformed (unterminated, not
// valid YAML, or not a mapping); the caller then treats the whole text as
// body.
func splitFrontmatter(text string) (meta metadata, body string, present, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, " \t") != fence {
		return metadata{}, text, false, false
	}

	var block strings.Builder
	for {
		line, next, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t") == fence {
			m, err := parseMetadata(block.String())
			if err != nil {
				return metadata{}, text, true, false
			}
			if !more {
				next = ""
			}
			return m, next, true, true
		}
		if !more {
			return metadata{}, text, true, false
		}
		block.WriteString(line)
		block.WriteByte('\n')
		rest = next
	}
}

func parseMetadata(src string) (metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	// An empty block is a valid, empty mapping.
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return metadata{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return metadata{}, fmt.Errorf("metadata is not a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Value != "title" {
			continue
		}
		return titleFromNode(val)
	}
	return metadata{}, nil
}

func titleFromNode(n *yaml.Node) (metadata, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return metadata{}, nil
		}
		// Raw scalar text keeps "2024" and "1.0" as written.
		return metadata{title: n.Value, hasTitle: true}, nil
	case yaml.AliasNode:
		if n.Alias != nil {
			return titleFromNode(n.Alias)
		}
		return metadata{}, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return metadata{}, fmt.Errorf("failed to decode title: %w", err)
		}
		return metadata{title: fmt.Sprint(v), hasTitle: true}, nil
	}
}
