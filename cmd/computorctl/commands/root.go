// Package commands implements computorctl's cobra command tree: the
// operator-facing surface onto the Durable Workflow Engine Adapter
// (spec.md §6). Structured the way jra3-linear-fuse's cmd/linear-fuse/
// commands package splits a root command from leaf commands in
// per-file init()s, with a package-level rootCmd every leaf registers
// itself onto.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/computor-org/cpsto/internal/config"
	"github.com/computor-org/cpsto/internal/objectstore"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

var (
	temporalHostPort string
	temporalNS       string
)

var rootCmd = &cobra.Command{
	Use:   "computorctl",
	Short: "Operate the Course Provisioning & Student-Template Orchestrator",
	Long: `computorctl submits and inspects CPSTO workflow runs: deploying course
hierarchies, generating assignments and student templates, and
synchronizing the example catalog.`,
}

// Execute runs the root command and converts any returned error into the
// process's exit status via exitCodeFor (spec.md §6: 0/2/3/4/5).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&temporalHostPort, "temporal-host", envOrDefault("COMPUTORCTL_TEMPORAL_HOST", "localhost:7233"), "Temporal frontend host:port")
	rootCmd.PersistentFlags().StringVar(&temporalNS, "temporal-namespace", envOrDefault("COMPUTORCTL_TEMPORAL_NAMESPACE", "default"), "Temporal namespace")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// dial connects to the Temporal frontend named by the persistent flags,
// reporting an unreachable provider as exit code 4.
func dial() (*dwe.Adapter, error) {
	adapter, err := dwe.Dial(temporalHostPort, temporalNS)
	if err != nil {
		return nil, providerUnreachable{cause: err}
	}
	return adapter, nil
}

// newObjectStoreClientFromEnv builds a CSG client from the same process
// environment variables the worker reads, since sync-catalog stages
// files directly rather than going through an activity.
func newObjectStoreClientFromEnv() (*objectstore.Client, error) {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return nil, err
	}
	client, err := objectstore.NewClient(objectstore.Config{
		Endpoint:  cfg.ObjectStoreEndpoint,
		AccessKey: cfg.ObjectStoreAccessKey,
		SecretKey: cfg.ObjectStoreSecretKey,
		UseTLS:    cfg.ObjectStoreUseTLS,
	})
	if err != nil {
		return nil, providerUnreachable{cause: err}
	}
	return client, nil
}

// providerUnreachable wraps a failure to reach a collaborator (the Temporal
// frontend, the database, or the object store) so exitCodeFor maps it to
// spec.md §6's exit code 4 regardless of the underlying error shape.
type providerUnreachable struct{ cause error }

func (e providerUnreachable) Error() string { return fmt.Sprintf("provider unreachable: %v", e.cause) }
func (e providerUnreachable) Unwrap() error { return e.cause }
