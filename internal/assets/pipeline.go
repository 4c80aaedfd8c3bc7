package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"maps"
	"path/filepath"
	"sync"

	"github.com/benchtools/benchpress/internal/buildconfig"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Pipeline builds frontend assets from a resolved configuration and serves
// metadata about the produced bundles.
type Pipeline struct {
	cfg      *buildconfig.BuildConfiguration
	metadata *BuildMetadata
	tmpl     *template.Template
	tmplName string
	mu       sync.RWMutex
}

// New creates an asset pipeline for the given configuration.
func New(cfg *buildconfig.BuildConfiguration) *Pipeline {
	return &Pipeline{
		cfg: cfg,
	}
}

// NewWithTemplate creates an asset pipeline and loads the HTML shell template
// used by the dev server to serve entry pages.
func NewWithTemplate(cfg *buildconfig.BuildConfiguration, templatePath string) (*Pipeline, error) {
	return NewWithTemplateAndFuncs(cfg, templatePath, nil)
}

// NewWithTemplateAndFuncs is NewWithTemplate with extra template functions.
func NewWithTemplateAndFuncs(cfg *buildconfig.BuildConfiguration, templatePath string, customFuncs template.FuncMap) (*Pipeline, error) {
	p := &Pipeline{
		cfg: cfg,
	}

	funcs := template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}
	maps.Copy(funcs, customFuncs)

	// ParseFiles registers the template under its base name, which is what
	// ExecuteTemplate must look up.
	name := filepath.Base(templatePath)
	tmpl, err := template.New(name).Funcs(funcs).ParseFiles(templatePath)
	if err != nil {
		return nil, err
	}
	p.tmpl = tmpl
	p.tmplName = name
	return p, nil
}

// TemplateName returns the name the shell template is registered under, or
// the empty string when the pipeline was created without one.
func (p *Pipeline) TemplateName() string {
	return p.tmplName
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
