// Package pipeline declares the steps of the house price pipeline and compiles
// them into an intermediate representation an orchestrator can execute.
package pipeline

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// Step is one containerized unit of work.
type Step struct {
	Name        string   `json:"name" yaml:"name"`
	DisplayName string   `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Image       string   `json:"image" yaml:"image"`
	Command     []string `json:"command" yaml:"command"`
	// Args may reference artifacts as {{step.artifact}}. The orchestrator
	// substitutes a path under the pipeline root.
	Args      []string `json:"args,omitempty" yaml:"args,omitempty"`
	Outputs   []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Definition is a pipeline before compilation.
type Definition struct {
	Name          string
	Description   string
	Root          string
	EnableCaching bool
	Steps         []Step
}

// placeholderRe matches {{step.artifact}}.
var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)\}\}`)

// ArtifactRef names an output of a step.
type ArtifactRef struct {
	Step     string
	Artifact string
}

// References returns the artifacts an argument refers to.
func References(arg string) []ArtifactRef {
	var out []ArtifactRef
	for _, m := range placeholderRe.FindAllStringSubmatch(arg, -1) {
		out = append(out, ArtifactRef{Step: m[1], Artifact: m[2]})
	}
	return out
}

// Resolve substitutes every placeholder in arg using path.
func Resolve(arg string, path func(ArtifactRef) string) string {
	return placeholderRe.ReplaceAllStringFunc(arg, func(s string) string {
		m := placeholderRe.FindStringSubmatch(s)
		return path(ArtifactRef{Step: m[1], Artifact: m[2]})
	})
}

// Order validates the step graph and returns the steps in topological order.
// Ties keep declaration order.
func (d Definition) Order() ([]Step, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("pipeline name is required: %w", domain.ErrInvalidInput)
	}
	if len(d.Steps) == 0 {
		return nil, fmt.Errorf("pipeline %s has no steps: %w", d.Name, domain.ErrInvalidInput)
	}

	byName := make(map[string]Step, len(d.Steps))
	for _, s := range d.Steps {
		if s.Name == "" {
			return nil, fmt.Errorf("step without a name: %w", domain.ErrInvalidInput)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate step %q: %w", s.Name, domain.ErrInvalidInput)
		}
		if len(s.Command) == 0 {
			return nil, fmt.Errorf("step %q has no command: %w", s.Name, domain.ErrInvalidInput)
		}
		byName[s.Name] = s
	}
	for _, s := range d.Steps {
		if err := checkStep(s, byName); err != nil {
			return nil, err
		}
	}

	indegree := make(map[string]int, len(d.Steps))
	for _, s := range d.Steps {
		indegree[s.Name] = len(s.DependsOn)
	}
	done := make(map[string]bool, len(d.Steps))
	order := make([]Step, 0, len(d.Steps))
	for len(order) < len(d.Steps) {
		progressed := false
		for _, s := range d.Steps {
			if done[s.Name] || indegree[s.Name] > 0 {
				continue
			}
			done[s.Name] = true
			order = append(order, s)
			progressed = true
			for _, t := range d.Steps {
				if slices.Contains(t.DependsOn, s.Name) {
					indegree[t.Name]--
				}
			}
			break
		}
		if !progressed {
			return nil, fmt.Errorf("pipeline %s has a dependency cycle: %w", d.Name, domain.ErrInvalidInput)
		}
	}
	return order, nil
}

func checkStep(s Step, byName map[string]Step) error {
	for _, dep := range s.DependsOn {
		if dep == s.Name {
			return fmt.Errorf("step %q depends on itself: %w", s.Name, domain.ErrInvalidInput)
		}
		if _, ok := byName[dep]; !ok {
			return fmt.Errorf("step %q depends on unknown step %q: %w", s.Name, dep, domain.ErrInvalidInput)
		}
	}
	for _, arg := range s.Args {
		for _, ref := range References(arg) {
			if ref.Step != s.Name && !slices.Contains(s.DependsOn, ref.Step) {
				return fmt.Errorf("step %q reads %s.%s without depending on %q: %w",
					s.Name, ref.Step, ref.Artifact, ref.Step, domain.ErrInvalidInput)
			}
			if !slices.Contains(byName[ref.Step].Outputs, ref.Artifact) {
				return fmt.Errorf("step %q reads undeclared artifact %s.%s: %w",
					s.Name, ref.Step, ref.Artifact, domain.ErrInvalidInput)
			}
		}
	}
	return nil
}
