package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const documentVersion = 1

type document struct {
	Version   int        `yaml:"version"`
	Platforms []Platform `yaml:"platforms"`
}

// ParseYAML decodes a catalog document. A zero version is treated as the
// current version for hand-written files.
func ParseYAML(data []byte) ([]Platform, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog document: %w", err)
	}
	if doc.Version != 0 && doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported catalog version %d", doc.Version)
	}
	return doc.Platforms, nil
}

// Defaults loads the embedded descriptor set shipped with the binary.
func Defaults() Loader {
	return LoaderFunc(func(context.Context) ([]Platform, error) {
		return ParseYAML(defaultsYAML)
	})
}

// Static wraps a fixed descriptor set, mainly for tests.
func Static(platforms []Platform) Loader {
	return LoaderFunc(func(context.Context) ([]Platform, error) {
		return platforms, nil
	})
}

// FileLoader reads a catalog document from disk on every Load, so Refresh
// picks up edits to self-hosted catalogs.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) ([]Platform, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseYAML(data)
}
