// Package gitlabhost is the Git Host Gateway (GHG, spec.md §4.4): the only
// component that talks to the hosting provider. It creates/finds groups and
// projects, sets member access levels, and pushes commits over authenticated
// HTTPS, caching provider identifiers back onto the owning entity as
// "gitlab properties".
package gitlabhost

import (
	"crypto/tls"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// Config carries the credentials and endpoint needed to reach the GitLab
// instance backing a deployment. Adapted from the teacher's
// pkg/clients.Config.
type Config struct {
	Token              string
	BaseURL            string
	InsecureSkipVerify bool
}

// NewClient builds a GitLab API client from cfg, using a pooled cleanhttp
// transport exactly as the teacher's clients.NewClient does, so connections
// to the GitLab instance are reused across the many group/project/member
// calls a single hierarchy deployment makes.
func NewClient(cfg Config) (*gitlab.Client, error) {
	var options []gitlab.ClientOptionFunc
	if cfg.BaseURL != "" {
		options = append(options, gitlab.WithBaseURL(cfg.BaseURL))
	}

	transport := cleanhttp.DefaultPooledTransport()
	if cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	options = append(options, gitlab.WithHTTPClient(&http.Client{Transport: transport}))

	return gitlab.NewClient(cfg.Token, options...)
}

// Properties is the "gitlab properties" record spec.md §4.4 requires be
// cached on every entity that owns a provider-side resource:
// `{group_id|project_id, namespace_id?, web_url, full_path, last_synced_at}`.
// It round-trips through Organization.GitlabProperties / CourseFamily.../
// Course... as a JSON column in internal/storage/postgres.
type Properties struct {
	GroupID       int    `json:"group_id,omitempty"`
	ProjectID     int    `json:"project_id,omitempty"`
	NamespaceID   int    `json:"namespace_id,omitempty"`
	WebURL        string `json:"web_url"`
	FullPath      string `json:"full_path"`
	LastSyncedAt  string `json:"last_synced_at"`
}
