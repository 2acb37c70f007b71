package matrix

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadMatrix reads a matrix file from fs
func LoadMatrix(fs afero.Fs, path string) (Matrix, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading matrix file: %w", err)
	}

	return ParseMatrix(data)
}

// ParseMatrix parses matrix YAML. Both a bare list of entries and a document
// with a top-level "matrix" (or GitHub-style "include") key are accepted.
func ParseMatrix(data []byte) (Matrix, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing matrix YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.MappingNode {
		node = findKey(node, "matrix", "include")
		if node == nil {
			return nil, fmt.Errorf("parsing matrix YAML: no matrix or include key")
		}
	}
	return DecodeMatrix(node)
}

// DecodeMatrix decodes a node holding a list of entries, or a mapping with
// the list under "include". A null node decodes to an empty matrix.
func DecodeMatrix(node *yaml.Node) (Matrix, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	// matrix: {include: [...]}
	if node.Kind == yaml.MappingNode {
		node = findKey(node, "include")
		if node == nil {
			return nil, fmt.Errorf("parsing matrix YAML: matrix has no include list")
		}
	}

	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parsing matrix YAML: expected a list of entries at line %d", node.Line)
	}

	var m Matrix
	if err := node.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing matrix entries: %w", err)
	}
	return m, nil
}

func findKey(mapping *yaml.Node, keys ...string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		for _, key := range keys {
			if mapping.Content[i].Value == key {
				return mapping.Content[i+1]
			}
		}
	}
	return nil
}
