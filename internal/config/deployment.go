// Package config parses the declarative deployment configuration
// (spec.md §6) and the process-level worker/CLI configuration.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// GitlabConfig holds the organization's Git-host connection parameters.
type GitlabConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	Token  string `yaml:"token" validate:"required"`
	Parent *int   `yaml:"parent"`
}

// SourceConfig seeds a project's initial content from an external URL.
type SourceConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// ExecutionBackend declares a test-execution backend reference; CPSTO
// only persists these, it never invokes the backend itself (spec.md
// §1 Out of scope: test-execution backends).
type ExecutionBackend struct {
	Slug     string         `yaml:"slug" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// OrganizationConfig is the organization block of the deployment YAML.
type OrganizationConfig struct {
	Path        string       `yaml:"path" validate:"required"`
	Name        string       `yaml:"name" validate:"required"`
	Description string       `yaml:"description"`
	Gitlab      GitlabConfig `yaml:"gitlab" validate:"required"`
}

// CourseFamilyConfig is the courseFamily block of the deployment YAML.
type CourseFamilyConfig struct {
	Path        string `yaml:"path" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

// CourseSettings carries the nested settings.source block.
type CourseSettings struct {
	Source SourceConfig `yaml:"source"`
}

// CourseConfig is the course block of the deployment YAML.
type CourseConfig struct {
	Path              string             `yaml:"path" validate:"required"`
	Name              string             `yaml:"name" validate:"required"`
	Description       string             `yaml:"description"`
	ExecutionBackends []ExecutionBackend `yaml:"executionBackends"`
	Settings          CourseSettings     `yaml:"settings"`
}

// DeploymentConfig is the full declarative deployment configuration
// consumed by the DeployHierarchy workflow (spec.md §6).
type DeploymentConfig struct {
	Organization OrganizationConfig `yaml:"organization" validate:"required"`
	CourseFamily CourseFamilyConfig `yaml:"courseFamily" validate:"required"`
	Course       CourseConfig       `yaml:"course" validate:"required"`
}

var validate = validator.New()

// ParseDeploymentConfig parses and validates a deployment YAML document.
func ParseDeploymentConfig(data []byte) (*DeploymentConfig, error) {
	var cfg DeploymentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse deployment configuration")
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "deployment configuration failed validation")
	}
	return &cfg, nil
}

// LoadDeploymentConfig reads and parses a deployment YAML file from disk.
func LoadDeploymentConfig(path string) (*DeploymentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read deployment configuration %s", path)
	}
	return ParseDeploymentConfig(data)
}
