package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/linto-ai/lintoctl/pkg/certbackup"
	"github.com/linto-ai/lintoctl/pkg/resolve"
	"github.com/linto-ai/lintoctl/pkg/service"
)

// ClusterOps is the cluster surface the orchestrator drives.
type ClusterOps interface {
	EnsureNamespace(ctx context.Context, name string) error
	RestartDeployments(ctx context.Context, namespace, selector string) ([]string, error)
	DeletePVCs(ctx context.Context, namespace string) ([]string, error)
}

// CertBackups persists TLS secrets across teardowns.
type CertBackups interface {
	Backup(ctx context.Context, profile, namespace string) (*certbackup.Ref, error)
	Restore(ctx context.Context, profile, namespace string) (bool, error)
}

// OutcomeStatus is the per-service result of a deployment.
type OutcomeStatus string

const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome records the apply result of one service.
type Outcome struct {
	Service  service.ID    `json:"service" yaml:"service"`
	Release  string        `json:"release" yaml:"release"`
	Status   OutcomeStatus `json:"status" yaml:"status"`
	Revision int           `json:"revision,omitempty" yaml:"revision,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// DeployReport summarizes one deployment run.
type DeployReport struct {
	OperationID   string        `json:"operationId" yaml:"operationId"`
	Profile       string        `json:"profile" yaml:"profile"`
	Namespace     string        `json:"namespace" yaml:"namespace"`
	Rendered      bool          `json:"rendered" yaml:"rendered"`
	CertsRestored bool          `json:"certsRestored" yaml:"certsRestored"`
	Services      []Outcome     `json:"services" yaml:"services"`
	StartedAt     time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// Applied returns the services that applied successfully.
func (r *DeployReport) Applied() []service.ID {
	var ids []service.ID
	for _, o := range r.Services {
		if o.Status == OutcomeApplied {
			ids = append(ids, o.Service)
		}
	}
	return ids
}

// Headers implements the CLI table contract.
func (r *DeployReport) Headers() []string {
	return []string{"SERVICE", "RELEASE", "STATUS", "REVISION", "ERROR"}
}

// Rows implements the CLI table contract.
func (r *DeployReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Services))
	for _, o := range r.Services {
		revision := "-"
		if o.Revision > 0 {
			revision = strconv.Itoa(o.Revision)
		}
		rows = append(rows, []string{
			o.Service.DisplayName(), o.Release, string(o.Status), revision, o.Error,
		})
	}
	return rows
}

// Failed returns the services whose apply failed.
func (r *DeployReport) Failed() []service.ID {
	var ids []service.ID
	for _, o := range r.Services {
		if o.Status == OutcomeFailed {
			ids = append(ids, o.Service)
		}
	}
	return ids
}

// DeployOptions tune one deployment run.
type DeployOptions struct {
	// ForceRender regenerates values artifacts even when present.
	ForceRender bool
	// Overrides win over every other configuration source.
	Overrides resolve.Overrides
	// ManifestPath optionally points at a version manifest file.
	ManifestPath string
}

// DestroyOptions tune one teardown run.
type DestroyOptions struct {
	// RemoveVolumes deletes the persistent volume claims after the
	// releases are uninstalled.
	RemoveVolumes bool
	// RemoveFiles deletes the rendered values artifacts.
	RemoveFiles bool
}

// DestroyReport summarizes one teardown run.
type DestroyReport struct {
	OperationID    string   `json:"operationId" yaml:"operationId"`
	Profile        string   `json:"profile" yaml:"profile"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	BackedUpCerts  []string `json:"backedUpCerts,omitempty" yaml:"backedUpCerts,omitempty"`
	Uninstalled    []string `json:"uninstalled" yaml:"uninstalled"`
	VolumesDeleted []string `json:"volumesDeleted,omitempty" yaml:"volumesDeleted,omitempty"`
	VolumesSkipped string   `json:"volumesSkipped,omitempty" yaml:"volumesSkipped,omitempty"`
	FilesRemoved   bool     `json:"filesRemoved" yaml:"filesRemoved"`
}

// RedeployReport summarizes one rolling restart.
type RedeployReport struct {
	OperationID string   `json:"operationId" yaml:"operationId"`
	Profile     string   `json:"profile" yaml:"profile"`
	Namespace   string   `json:"namespace" yaml:"namespace"`
	Restarted   []string `json:"restarted" yaml:"restarted"`
}
