// Package manifest loads and validates crust.build project descriptions.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/xerrors"
)

// Target types understood by the loader. Everything else is rejected.
const (
	TypeExecutable    = "executable"
	TypeStaticLibrary = "static_library"
	TypeSharedLibrary = "shared_library"
	TypeCustomCommand = "custom_command"
)

// Project holds the [project] section of a manifest.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Target holds one [[targets]] entry. Which fields must be set depends on
// Type; Validate enforces that.
type Target struct {
	Type    string   `toml:"type"`
	Name    string   `toml:"name"`
	Sources []string `toml:"sources"`
	Deps    []string `toml:"deps"`

	// custom_command only:
	Command string   `toml:"command"`
	Outputs []string `toml:"outputs"`
	Inputs  []string `toml:"inputs"`
}

// BuildInputs returns the declared input files of the target: sources for
// compiled targets, inputs for custom commands.
func (t *Target) BuildInputs() []string {
	if t.Type == TypeCustomCommand {
		return t.Inputs
	}
	return t.Sources
}

// Manifest is the validated in-memory form of a crust.build file.
type Manifest struct {
	Project Project  `toml:"project"`
	Targets []Target `toml:"targets"`
}

// Load reads and decodes the manifest at path, then validates its shape.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, xerrors.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the manifest shape: required fields per target type, known
// target types. Cross-target properties (duplicate names, unknown deps,
// cycles) are the dependency graph's job.
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return xerrors.New("missing project.name")
	}
	for idx, t := range m.Targets {
		if t.Name == "" {
			return xerrors.Errorf("targets[%d]: missing name", idx)
		}
		switch t.Type {
		case TypeExecutable, TypeStaticLibrary, TypeSharedLibrary:
			if len(t.Sources) == 0 {
				return xerrors.Errorf("target %q: missing sources", t.Name)
			}
			if t.Command != "" {
				return xerrors.Errorf("target %q: command is only valid for custom_command targets", t.Name)
			}
		case TypeCustomCommand:
			if t.Command == "" {
				return xerrors.Errorf("target %q: missing command", t.Name)
			}
			if len(t.Outputs) == 0 {
				return xerrors.Errorf("target %q: missing outputs", t.Name)
			}
		case "":
			return xerrors.Errorf("target %q: missing type", t.Name)
		default:
			return xerrors.Errorf("target %q: unknown type %q", t.Name, t.Type)
		}
	}
	return nil
}

// Dir returns the directory containing the manifest at path. Relative source
// paths in the manifest are resolved against it.
func Dir(path string) string {
	return filepath.Dir(path)
}
