package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crust.build")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `[project]
name = "demo"
version = "1.0"

[[targets]]
type = "executable"
name = "app"
sources = ["src/main.c"]
deps = ["util"]

[[targets]]
type = "static_library"
name = "util"
sources = ["src/util.c"]

[[targets]]
type = "custom_command"
name = "codegen"
command = "python gen.py"
outputs = ["generated.h"]
inputs = ["schema.json"]
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Manifest{
		Project: Project{Name: "demo", Version: "1.0"},
		Targets: []Target{
			{
				Type:    TypeExecutable,
				Name:    "app",
				Sources: []string{"src/main.c"},
				Deps:    []string{"util"},
			},
			{
				Type:    TypeStaticLibrary,
				Name:    "util",
				Sources: []string{"src/util.c"},
			},
			{
				Type:    TypeCustomCommand,
				Name:    "codegen",
				Command: "python gen.py",
				Outputs: []string{"generated.h"},
				Inputs:  []string{"schema.json"},
			},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("unexpected manifest: diff (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidShapes(t *testing.T) {
	for _, tt := range []struct {
		desc     string
		contents string
		want     string
	}{
		{
			desc:     "missing project name",
			contents: "[project]\n",
			want:     "missing project.name",
		},

		{
			desc: "unknown target type",
			contents: `[project]
name = "demo"

[[targets]]
type = "jar"
name = "app"
sources = ["Main.java"]
`,
			want: "unknown type",
		},

		{
			desc: "missing sources",
			contents: `[project]
name = "demo"

[[targets]]
type = "executable"
name = "app"
`,
			want: "missing sources",
		},

		{
			desc: "custom command without command",
			contents: `[project]
name = "demo"

[[targets]]
type = "custom_command"
name = "gen"
outputs = ["out.h"]
`,
			want: "missing command",
		},

		{
			desc: "custom command without outputs",
			contents: `[project]
name = "demo"

[[targets]]
type = "custom_command"
name = "gen"
command = "true"
`,
			want: "missing outputs",
		},

		{
			desc: "missing target name",
			contents: `[project]
name = "demo"

[[targets]]
type = "executable"
sources = ["main.c"]
`,
			want: "missing name",
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := Load(writeManifest(t, tt.contents))
			if err == nil {
				t.Fatalf("Load unexpectedly succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("unexpected error: got %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestBuildInputs(t *testing.T) {
	exe := &Target{Type: TypeExecutable, Sources: []string{"a.c"}, Inputs: []string{"ignored"}}
	if got, want := exe.BuildInputs(), []string{"a.c"}; !cmp.Equal(got, want) {
		t.Errorf("BuildInputs: got %v, want %v", got, want)
	}
	cc := &Target{Type: TypeCustomCommand, Inputs: []string{"schema.json"}}
	if got, want := cc.BuildInputs(), []string{"schema.json"}; !cmp.Equal(got, want) {
		t.Errorf("BuildInputs: got %v, want %v", got, want)
	}
}
