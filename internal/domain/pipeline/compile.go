package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// IRVersion identifies the layout of a compiled pipeline.
const IRVersion = "housepipe.pipeline/v1"

// Format is an encoding of the compiled pipeline.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension. JSON is the default.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Info is the pipeline-level metadata of the IR.
type Info struct {
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Root          string `json:"pipeline_root" yaml:"pipeline_root"`
	EnableCaching bool   `json:"enable_caching" yaml:"enable_caching"`
}

// Edge is a dependency: From runs before To.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// IR is a compiled pipeline. Steps are in execution order.
type IR struct {
	Version  string `json:"version" yaml:"version"`
	Pipeline Info   `json:"pipeline" yaml:"pipeline"`
	Steps    []Step `json:"steps" yaml:"steps"`
	Edges    []Edge `json:"edges" yaml:"edges"`
}

// Compile validates d and lays it out as an IR.
func Compile(d Definition) (*IR, error) {
	order, err := d.Order()
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	ir := &IR{
		Version: IRVersion,
		Pipeline: Info{
			Name:          d.Name,
			Description:   d.Description,
			Root:          d.Root,
			EnableCaching: d.EnableCaching,
		},
		Steps: order,
		Edges: []Edge{},
	}
	for _, s := range order {
		for _, dep := range s.DependsOn {
			ir.Edges = append(ir.Edges, Edge{From: dep, To: s.Name})
		}
	}
	return ir, nil
}

// Definition rebuilds the definition the IR was compiled from.
func (ir *IR) Definition() Definition {
	return Definition{
		Name:          ir.Pipeline.Name,
		Description:   ir.Pipeline.Description,
		Root:          ir.Pipeline.Root,
		EnableCaching: ir.Pipeline.EnableCaching,
		Steps:         ir.Steps,
	}
}

// Encode renders the IR in the given format.
func (ir *IR) Encode(f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(ir, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode pipeline: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(ir); err != nil {
			return nil, fmt.Errorf("encode pipeline: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode pipeline: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown pipeline format %q: %w", f, domain.ErrInvalidInput)
	}
}

// Decode parses a JSON or YAML IR and validates its graph.
func Decode(data []byte) (*IR, error) {
	var ir IR
	if err := yaml.Unmarshal(data, &ir); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w: %w", domain.ErrInvalidInput, err)
	}
	if ir.Version != IRVersion {
		return nil, fmt.Errorf("pipeline version %q, want %q: %w", ir.Version, IRVersion, domain.ErrInvalidInput)
	}
	order, err := ir.Definition().Order()
	if err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	ir.Steps = order
	return &ir, nil
}
