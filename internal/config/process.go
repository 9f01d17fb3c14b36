package config

import (
	"os"

	"github.com/pkg/errors"
)

// ProcessConfig carries the connection parameters the worker and CLI
// binaries need to reach their collaborators: the database, the object
// store, the GitLab host, and the Temporal frontend. It is populated
// from environment variables, mirroring the teacher's GetConfig/
// UseProviderConfig split (there: read a k8s Secret; here: read the
// process environment) since CPSTO has no Kubernetes control plane to
// source credentials from.
type ProcessConfig struct {
	// Postgres
	PostgresDSN string

	// Object store (CSG)
	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreUseTLS    bool
	ObjectStoreBucket    string

	// GitLab (GHG)
	GitlabBaseURL string
	GitlabToken   string

	// Temporal (DWE)
	TemporalHostPort string
	TemporalTaskQueue string
}

const defaultTaskQueue = "computor-cpsto"

// FromEnvironment builds a ProcessConfig from well-known environment
// variables, applying the same required/optional split as the teacher's
// UseProviderConfig (BaseURL optional, Token required).
func FromEnvironment() (*ProcessConfig, error) {
	cfg := &ProcessConfig{
		PostgresDSN:          os.Getenv("COMPUTOR_POSTGRES_DSN"),
		ObjectStoreEndpoint:  os.Getenv("COMPUTOR_OBJECTSTORE_ENDPOINT"),
		ObjectStoreAccessKey: os.Getenv("COMPUTOR_OBJECTSTORE_ACCESS_KEY"),
		ObjectStoreSecretKey: os.Getenv("COMPUTOR_OBJECTSTORE_SECRET_KEY"),
		ObjectStoreUseTLS:    os.Getenv("COMPUTOR_OBJECTSTORE_TLS") == "true",
		ObjectStoreBucket:    envOrDefault("COMPUTOR_OBJECTSTORE_BUCKET", "computor-examples"),
		GitlabBaseURL:        os.Getenv("COMPUTOR_GITLAB_URL"),
		GitlabToken:          os.Getenv("COMPUTOR_GITLAB_TOKEN"),
		TemporalHostPort:     envOrDefault("COMPUTOR_TEMPORAL_HOST", "localhost:7233"),
		TemporalTaskQueue:    envOrDefault("COMPUTOR_TEMPORAL_TASK_QUEUE", defaultTaskQueue),
	}
	if cfg.PostgresDSN == "" {
		return nil, errors.New("COMPUTOR_POSTGRES_DSN is not set")
	}
	if cfg.GitlabToken == "" {
		return nil, errors.New("COMPUTOR_GITLAB_TOKEN is not set")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
