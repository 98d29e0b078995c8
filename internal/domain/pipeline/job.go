package pipeline

import (
	"github.com/google/uuid"
)

// Job is one submission of a compiled pipeline.
type Job struct {
	ID             string `json:"id" yaml:"id"`
	DisplayName    string `json:"display_name" yaml:"display_name"`
	TemplatePath   string `json:"template_path" yaml:"template_path"`
	PipelineRoot   string `json:"pipeline_root" yaml:"pipeline_root"`
	EnableCaching  bool   `json:"enable_caching" yaml:"enable_caching"`
	Project        string `json:"project" yaml:"project"`
	Location       string `json:"location" yaml:"location"`
	ServiceAccount string `json:"service_account" yaml:"service_account"`
}

// JobTarget is where a job runs.
type JobTarget struct {
	Project        string
	Location       string
	ServiceAccount string
}

// NewJob creates a job with a fresh run id. Caching follows the IR.
func NewJob(ir *IR, displayName, templatePath string, t JobTarget) Job {
	return Job{
		ID:             uuid.NewString(),
		DisplayName:    displayName,
		TemplatePath:   templatePath,
		PipelineRoot:   ir.Pipeline.Root,
		EnableCaching:  ir.Pipeline.EnableCaching,
		Project:        t.Project,
		Location:       t.Location,
		ServiceAccount: t.ServiceAccount,
	}
}
