package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/housepipe/internal/domain/batch"
	"github.com/kailas-cloud/housepipe/internal/version"
)

// Config holds the housepipe configuration. It is built once by Load and
// passed to every command.
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Training  TrainingConfig  `yaml:"training"`
	Batch     BatchConfig     `yaml:"batch"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Database  DatabaseConfig  `yaml:"database"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Derived is computed from Project by Derive.
	Derived Derived `yaml:"-"`
}

// ProjectConfig names the team, repository and branch the pipeline belongs to.
type ProjectConfig struct {
	Team    string   `yaml:"team"`
	Repo    string   `yaml:"repo"`
	Branch  string   `yaml:"branch"`
	Region  string   `yaml:"region"`
	Version string   `yaml:"version"` // image tag (default: build version)
	Images  []string `yaml:"images"`  // image names built for this repo
}

// Derived holds the values computed from ProjectConfig.
type Derived struct {
	ProjectID      string
	ServiceAccount string
	BucketURI      string
	PipelineRoot   string
	ArtifactURI    string
	DockerBase     string
	Images         map[string]string
}

// TrainingConfig holds training task settings.
type TrainingConfig struct {
	DatasetURL      string  `yaml:"dataset_url"` // empty = Ames housing dataset
	TestRatio       float64 `yaml:"test_ratio"`
	Seed            uint64  `yaml:"seed"`    // 0 = fresh split every run
	MaxMAE          float64 `yaml:"max_mae"` // 0 = no acceptance threshold
	FetchTimeoutSec int     `yaml:"fetch_timeout_sec"`
}

// BatchConfig holds batch prediction settings.
type BatchConfig struct {
	Input            string `yaml:"input"`
	Output           string `yaml:"output"`
	Project          string `yaml:"project"`
	WriteDisposition string `yaml:"write_disposition"`
	MaxRowsPerChunk  int    `yaml:"max_rows_per_chunk"`
}

// PipelineConfig holds pipeline compile and local run settings.
type PipelineConfig struct {
	Image     string `yaml:"image"`      // image name in project.images used by every step
	LocalRoot string `yaml:"local_root"` // pipeline root for run-pipeline
}

// DatabaseConfig holds the optional Valkey artifact store settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// WarehouseConfig holds the warehouse connection settings.
type WarehouseConfig struct {
	DSN               string `yaml:"dsn"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
}

// MetricsConfig holds task metric settings.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"` // empty = do not push
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxRecords      int `yaml:"max_records"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json or console (default: determined by env)
}

// Defaults.
const (
	DefaultRegion    = "us-east4"
	DefaultTestRatio = 0.1
	DefaultImage     = "house_price"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.Derive()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Project.Region == "" {
		c.Project.Region = DefaultRegion
	}
	if c.Project.Version == "" {
		c.Project.Version = version.Version
	}
	if len(c.Project.Images) == 0 {
		c.Project.Images = []string{DefaultImage}
	}
	if c.Training.TestRatio == 0 {
		c.Training.TestRatio = DefaultTestRatio
	}
	if c.Training.FetchTimeoutSec <= 0 {
		c.Training.FetchTimeoutSec = 60
	}
	if c.Batch.WriteDisposition == "" {
		c.Batch.WriteDisposition = "WRITE_TRUNCATE"
	}
	if c.Batch.MaxRowsPerChunk <= 0 {
		c.Batch.MaxRowsPerChunk = batch.DefaultMaxRowsPerChunk
	}
	if c.Pipeline.Image == "" {
		c.Pipeline.Image = DefaultImage
	}
	if c.Pipeline.LocalRoot == "" {
		c.Pipeline.LocalRoot = "pipeline_root"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Warehouse.ConnectTimeoutSec <= 0 {
		c.Warehouse.ConnectTimeoutSec = 10
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxRecords <= 0 {
		c.HTTP.MaxRecords = 1000
	}
}

// Derive computes project, bucket, pipeline root and image names from the
// project section. Batch.Project defaults to the derived project id.
func (c *Config) Derive() {
	p := c.Project
	project := fmt.Sprintf("prj-0n-%s-sandbox", p.Team)
	bucket := strings.ReplaceAll(fmt.Sprintf("gs://%s/%s/%s", p.Team, p.Repo, p.Branch), "_", "-")
	base := strings.ReplaceAll(
		fmt.Sprintf("%s-docker.pkg.dev/%s/%s/%s", p.Region, project, p.Repo, p.Branch), "_", "-",
	)

	images := make(map[string]string, len(p.Images))
	for _, name := range p.Images {
		images[name] = fmt.Sprintf("%s/%s:%s", base, name, p.Version)
	}

	c.Derived = Derived{
		ProjectID:      project,
		ServiceAccount: fmt.Sprintf("gc-sa-for-vertex-ai-pipelines@%s.iam.gserviceaccount.com", project),
		BucketURI:      bucket,
		PipelineRoot:   bucket + "/pipeline_root",
		ArtifactURI:    bucket + "/artifacts",
		DockerBase:     base,
		Images:         images,
	}
	if c.Batch.Project == "" {
		c.Batch.Project = project
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Project.Team == "" {
		return fmt.Errorf("project.team is required")
	}
	if c.Project.Repo == "" {
		return fmt.Errorf("project.repo is required")
	}
	if c.Project.Branch == "" {
		return fmt.Errorf("project.branch is required")
	}
	if _, ok := c.Derived.Images[c.Pipeline.Image]; !ok {
		return fmt.Errorf("pipeline.image %q is not one of project.images %v", c.Pipeline.Image, c.Project.Images)
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio must be in (0, 1), got %v", c.Training.TestRatio)
	}
	if c.Training.MaxMAE < 0 {
		return fmt.Errorf("training.max_mae must not be negative, got %v", c.Training.MaxMAE)
	}
	switch c.Batch.WriteDisposition {
	case "WRITE_TRUNCATE", "WRITE_APPEND":
	default:
		return fmt.Errorf(
			"batch.write_disposition must be \"WRITE_TRUNCATE\" or \"WRITE_APPEND\", got %q",
			c.Batch.WriteDisposition,
		)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
