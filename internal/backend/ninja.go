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

const ninjaFilename = "build.ninja"

// In ninja syntax a literal $ must be written as $$.
func ninjaEscape(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

const ninjaTemplate = `# Generated by crust generate. Do not edit.

cc = cc
ar = ar

rule cc
  command = $cc -c $in -o $out
  description = CC $out

rule link
  command = $cc -o $out $in
  description = LINK $out

rule linkshared
  command = $cc -shared -o $out $in
  description = LINK $out

rule ar
  command = rm -f $out && $ar rcs $out $in
  description = AR $out
{{range .Targets}}{{if .Command}}
rule custom_{{.Name}}
  command = cd {{$.ManifestDir}} && CRUST_BUILDDIR={{$.OutDir}} {{escape .Command}}
  description = GEN {{.Name}}

build {{join .Outputs " "}}: custom_{{.Name}}{{if or .Inputs .DepOutputs}} |{{range .Inputs}} {{.}}{{end}}{{range .DepOutputs}} {{.}}{{end}}{{end}}
{{else}}
{{range .Objects}}build {{.Object}}: cc {{.Source}}
{{end}}{{if eq .Rule "ar"}}build {{index .Outputs 0}}: ar {{join .ObjectNames " "}}{{if .DepOutputs}} |{{range .DepOutputs}} {{.}}{{end}}{{end}}
{{else}}build {{index .Outputs 0}}: {{.Rule}} {{join .ObjectNames " "}}{{range .DepOutputs}} {{.}}{{end}}
{{end}}{{end}}{{end}}
default {{join .Defaults " "}}
`

var ninjaTmpl = template.Must(template.New(ninjaFilename).Funcs(template.FuncMap{
	"join":   strings.Join,
	"escape": ninjaEscape,
}).Parse(ninjaTemplate))

// Ninja emits a build.ninja file describing the whole build, with one build
// statement per artifact so ninja can do its own incremental scheduling.
type Ninja struct{}

func (*Ninja) Name() string { return "ninja" }

func (b *Ninja) Emit(g *graph.Graph, outDir, manifestDir string) (*EmitResult, error) {
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

	var buf bytes.Buffer
	err = ninjaTmpl.Execute(&buf, struct {
		Targets     []*renderTarget
		ManifestDir string
		OutDir      string
		Defaults    []string
	}{
		Targets:     targets,
		ManifestDir: absManifestDir,
		OutDir:      absOutDir,
		Defaults:    finalOutputs(targets),
	})
	if err != nil {
		return nil, xerrors.Errorf("rendering %s: %w", ninjaFilename, err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(outDir, ninjaFilename)
	if err := renameio.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, xerrors.Errorf("writing %s: %w", path, err)
	}
	return &EmitResult{Files: []string{path}}, nil
}

func (*Ninja) PrimaryOutputs(g *graph.Graph, outDir string) []string {
	return []string{filepath.Join(outDir, ninjaFilename)}
}
