// Package knowledge loads the fixed reference text the classifier answers
// from. The base is read once at startup and treated as read-only.
package knowledge

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta is the optional YAML front matter at the top of a knowledge file.
type Meta struct {
	Title   string `yaml:"title"`
	Updated string `yaml:"updated"`
}

// Base is the loaded knowledge base.
type Base struct {
	Meta    Meta
	Content string
	Path    string
}

// Load reads the knowledge file, stripping and parsing YAML front matter
// delimited by "---" lines when present. An unreadable file is an error;
// the caller decides whether that is fatal.
func Load(path string, logger *slog.Logger) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read knowledge base %s: %w", path, err)
	}

	content := string(data)
	base := &Base{Content: content, Path: path}

	if rest, ok := strings.CutPrefix(content, "---\n"); ok {
		if front, body, found := strings.Cut(rest, "\n---\n"); found {
			var meta Meta
			if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
				return nil, fmt.Errorf("invalid front matter in %s: %w", path, err)
			}
			base.Meta = meta
			base.Content = strings.TrimLeft(body, "\n")
		}
	}

	logger.Info("knowledge base loaded",
		"path", path,
		"chars", len(base.Content),
		"title", base.Meta.Title,
	)
	return base, nil
}

// Loaded reports whether the base holds any usable content.
func (b *Base) Loaded() bool {
	return b != nil && strings.TrimSpace(b.Content) != ""
}

// Len returns the content length in bytes.
func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Content)
}
