// internal/config/load.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/modbus-relay/internal/errors"
)

// IncludeTag splices another YAML file in place of the tagged node.
// Relative paths resolve against the directory of the including file.
const IncludeTag = "!include"

// Load reads, resolves includes, fills defaults and validates.
func Load(path string) (*Config, error) {
	root, err := readNode(path, nil)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if root != nil {
		if err := root.Decode(&cfg); err != nil {
			return nil, errors.Wrap(errors.ErrReadConfig, fmt.Errorf("%s: %w", path, err))
		}
	}

	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readNode parses path and resolves its includes. stack holds the files
// currently being expanded, to reject cycles.
func readNode(path string, stack []string) (*yaml.Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrReadConfig, err)
	}
	for _, p := range stack {
		if p == abs {
			return nil, errors.Newf(errors.ErrReadConfig, "include cycle at %s", path)
		}
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrReadConfig, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrReadConfig, fmt.Errorf("%s: %w", path, err))
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if err := resolveIncludes(root, filepath.Dir(abs), append(stack, abs)); err != nil {
		return nil, err
	}
	return root, nil
}

func resolveIncludes(n *yaml.Node, dir string, stack []string) error {
	if n.Tag == IncludeTag {
		if n.Kind != yaml.ScalarNode || n.Value == "" {
			return errors.Newf(errors.ErrReadConfig, "line %d: %s needs a file name", n.Line, IncludeTag)
		}

		target := n.Value
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}

		inc, err := readNode(target, stack)
		if err != nil {
			return err
		}
		if inc == nil {
			*n = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: ""}
			return nil
		}
		*n = *inc
		return nil
	}

	for _, c := range n.Content {
		if err := resolveIncludes(c, dir, stack); err != nil {
			return err
		}
	}
	return nil
}
