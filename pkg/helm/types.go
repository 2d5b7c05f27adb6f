package helm

import (
	"context"
	"time"
)

// ReleaseRequest describes one install-or-upgrade of a local chart.
type ReleaseRequest struct {
	// Release is the release name, <profile>-<service>.
	Release string
	// Chart is the chart directory name under the chart root.
	Chart     string
	Namespace string
	Values    map[string]any
	Wait      bool
	Timeout   time.Duration
}

// RepoChartRequest describes one install-or-upgrade of a chart pulled
// from a remote repository, used for prerequisites like cert-manager.
type RepoChartRequest struct {
	Release   string
	Chart     string
	RepoURL   string
	Version   string
	Namespace string
	Values    map[string]any
	Wait      bool
	Timeout   time.Duration
}

// ReleaseInfo is the summary of one installed release.
type ReleaseInfo struct {
	Name      string    `json:"name" yaml:"name"`
	Namespace string    `json:"namespace" yaml:"namespace"`
	Chart     string    `json:"chart" yaml:"chart"`
	Version   string    `json:"version" yaml:"version"`
	Status    string    `json:"status" yaml:"status"`
	Revision  int       `json:"revision" yaml:"revision"`
	Updated   time.Time `json:"updated" yaml:"updated"`
}

// ReleaseManager performs release operations against one cluster.
type ReleaseManager interface {
	// EnsureRelease installs the chart when the release does not exist
	// and upgrades it otherwise.
	EnsureRelease(ctx context.Context, req ReleaseRequest) (*ReleaseInfo, error)
	// EnsureRepoRelease is EnsureRelease for a chart from a remote repo.
	EnsureRepoRelease(ctx context.Context, req RepoChartRequest) (*ReleaseInfo, error)
	// Uninstall removes a release. A missing release is not an error.
	Uninstall(ctx context.Context, release, namespace string) error
	// List returns the releases deployed in a namespace.
	List(ctx context.Context, namespace string) ([]ReleaseInfo, error)
}
