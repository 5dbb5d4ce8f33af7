package backend

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/BobTheZombie/crust/internal/graph"
)

const makeFilename = "Makefile"

// In a Makefile a literal $ must be written as $$.
func makeEscape(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// The Makefile is written into the build directory and meant to be run
// there (make -C builddir). Recipes use tabs; keep them when editing the
// template.
const makeTemplate = `# Generated by crust generate. Do not edit.

CC = cc
AR = ar

all: {{join .Defaults " "}}
.PHONY: all clean
{{range .Targets}}{{if .Command}}
{{index .Outputs 0}}:{{range .Inputs}} {{.}}{{end}}{{range .DepOutputs}} {{.}}{{end}}
	cd {{$.ManifestDir}} && CRUST_BUILDDIR={{$.OutDir}} {{escape .Command}}
{{$first := index .Outputs 0}}{{range slice .Outputs 1}}
{{.}}: {{$first}} ;
{{end}}{{else}}
{{range .Objects}}{{.Object}}: {{.Source}}
	$(CC) -c {{.Source}} -o $@

{{end}}{{if eq .Rule "ar"}}{{index .Outputs 0}}: {{join .ObjectNames " "}}{{range .DepOutputs}} {{.}}{{end}}
	rm -f $@ && $(AR) rcs $@ {{join .ObjectNames " "}}
{{else if eq .Rule "linkshared"}}{{index .Outputs 0}}: {{join .ObjectNames " "}}{{range .DepOutputs}} {{.}}{{end}}
	$(CC) -shared -o $@ {{join .ObjectNames " "}}{{range .DepOutputs}} {{.}}{{end}}
{{else}}{{index .Outputs 0}}: {{join .ObjectNames " "}}{{range .DepOutputs}} {{.}}{{end}}
	$(CC) -o $@ {{join .ObjectNames " "}}{{range .DepOutputs}} {{.}}{{end}}
{{end}}{{end}}{{end}}
clean:
	rm -f {{join .CleanFiles " "}}
`

var makeTmpl = template.Must(template.New(makeFilename).Funcs(template.FuncMap{
	"join":   strings.Join,
	"escape": makeEscape,
}).Parse(makeTemplate))

// Make emits a Makefile equivalent of the build, with an all target, one
// recipe per artifact and a clean target.
type Make struct{}

func (*Make) Name() string { return "make" }

func (b *Make) Emit(g *graph.Graph, outDir, manifestDir string) (*EmitResult, error) {
	targets, err := renderTargets(g, manifestDir)
	if err != nil {
		return nil, err
	}
	absManifestDir, err := filepath.Abs(manifestDir)
	if err != nil {
		return nil, err
	}
	absOutDir, err := filepath.Abs(outDir)
	if err != nil {
		return nil, err
	}

	clean := finalOutputs(targets)
	for _, t := range targets {
		clean = append(clean, t.ObjectNames()...)
	}

	var buf bytes.Buffer
	err = makeTmpl.Execute(&buf, struct {
		Targets     []*renderTarget
		ManifestDir string
		OutDir      string
		Defaults    []string
		CleanFiles  []string
	}{
		Targets:     targets,
		ManifestDir: absManifestDir,
		OutDir:      absOutDir,
		Defaults:    finalOutputs(targets),
		CleanFiles:  clean,
	})
	if err != nil {
		return nil, xerrors.Errorf("rendering %s: %w", makeFilename, err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(outDir, makeFilename)
	if err := renameio.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, xerrors.Errorf("writing %s: %w", path, err)
	}
	return &EmitResult{Files: []string{path}}, nil
}

func (*Make) PrimaryOutputs(g *graph.Graph, outDir string) []string {
	return []string{filepath.Join(outDir, makeFilename)}
}
