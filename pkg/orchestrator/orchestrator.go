// Package orchestrator sequences the deployment pipeline: validation,
// namespace and prerequisite setup, certificate restore, rendering and
// per-service chart application. Operations on one profile are mutually
// exclusive; concurrent attempts are rejected, not queued.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/helm"
	"github.com/linto-ai/lintoctl/pkg/manifest"
	"github.com/linto-ai/lintoctl/pkg/profile"
	"github.com/linto-ai/lintoctl/pkg/render"
	"github.com/linto-ai/lintoctl/pkg/resolve"
	"github.com/linto-ai/lintoctl/pkg/service"
)

const instanceLabel = "app.kubernetes.io/instance"

// cert-manager prerequisite for acme profiles.
const (
	certManagerRelease   = "cert-manager"
	certManagerChart     = "cert-manager"
	certManagerRepo      = "https://charts.jetstack.io"
	certManagerVersion   = "v1.15.3"
	certManagerNamespace = "cert-manager"
)

// Options wire one Orchestrator.
type Options struct {
	Store    profile.Store
	Releases helm.ReleaseManager
	Cluster  ClusterOps
	Backups  CertBackups
	// RenderDir maps a profile name to its values artifact directory.
	RenderDir func(profile string) string
	// Timeout bounds each helm operation. Zero means ten minutes.
	Timeout   time.Duration
	TagPolicy resolve.TagPolicy
}

// Orchestrator runs deploy, redeploy and destroy pipelines.
type Orchestrator struct {
	store     profile.Store
	releases  helm.ReleaseManager
	cluster   ClusterOps
	backups   CertBackups
	renderDir func(string) string
	timeout   time.Duration
	tagPolicy resolve.TagPolicy
	locks     *locks
}

// New returns an Orchestrator.
func New(opts Options) *Orchestrator {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	policy := opts.TagPolicy
	if len(policy.FloatingPrefixes) == 0 {
		policy = resolve.DefaultTagPolicy()
	}
	return &Orchestrator{
		store:     opts.Store,
		releases:  opts.Releases,
		cluster:   opts.Cluster,
		backups:   opts.Backups,
		renderDir: opts.RenderDir,
		timeout:   timeout,
		tagPolicy: policy,
		locks:     newLocks(),
	}
}

func (o *Orchestrator) resolveProfile(name string, opts DeployOptions) (*profile.Profile, *resolve.Resolved, error) {
	p, err := o.store.Load(name)
	if err != nil {
		return nil, nil, err
	}

	if p.EnsureSecrets() {
		if err := o.store.Save(p); err != nil {
			return nil, nil, err
		}
	}

	var m *manifest.Manifest
	if opts.ManifestPath != "" {
		m, err = manifest.Load(opts.ManifestPath)
		if err != nil {
			return nil, nil, err
		}
	} else {
		m = manifest.FromTag(p.ImageTag)
	}

	r, err := resolve.Resolve(p, m, opts.Overrides, o.tagPolicy)
	if err != nil {
		return nil, nil, err
	}
	return p, r, nil
}

// renderArtifacts returns the values artifacts for the deployment,
// reusing persisted ones unless they are missing or a re-render was
// forced. The returned bool reports whether a fresh render happened.
func (o *Orchestrator) renderArtifacts(r *resolve.Resolved, force bool) ([]*render.Artifact, bool, error) {
	dir := o.renderDir(r.Name)

	if !force && render.Exist(dir, r.Services) {
		artifacts, err := render.LoadAll(dir, r.Services)
		if err == nil {
			return artifacts, false, nil
		}
		// Unreadable artifacts fall through to a fresh render.
		slog.Warn("persisted values unusable, re-rendering", "profile", r.Name, "error", err)
	}

	artifacts, err := render.Render(r)
	if err != nil {
		return nil, false, err
	}
	if _, err := render.WriteAll(dir, artifacts); err != nil {
		return nil, false, err
	}
	return artifacts, true, nil
}

// Deploy runs the full pipeline for one profile.
func (o *Orchestrator) Deploy(ctx context.Context, name string, opts DeployOptions) (*DeployReport, error) {
	if err := o.locks.acquire(name); err != nil {
		return nil, err
	}
	defer o.locks.release(name)

	report := &DeployReport{
		OperationID: uuid.NewString(),
		Profile:     name,
		StartedAt:   time.Now().UTC(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	log := slog.With("operation", report.OperationID, "profile", name)
	log.Info("deployment started")

	p, r, err := o.resolveProfile(name, opts)
	if err != nil {
		return report, err
	}
	report.Namespace = r.Namespace

	nsCtx, cancel := context.WithTimeout(ctx, o.timeout)
	err = o.cluster.EnsureNamespace(nsCtx, r.Namespace)
	cancel()
	if err != nil {
		return report, err
	}

	if r.TLSMode == profile.TLSACME {
		if err := o.ensureCertManager(ctx); err != nil {
			return report, err
		}
	}

	if p.TLSPersistent() {
		restored, err := o.backups.Restore(ctx, name, r.Namespace)
		if err != nil {
			return report, err
		}
		report.CertsRestored = restored
		if restored {
			log.Info("TLS secrets restored from backup")
		}
	}

	artifacts, rendered, err := o.renderArtifacts(r, opts.ForceRender)
	if err != nil {
		return report, err
	}
	report.Rendered = rendered

	report.Services = o.applyServices(ctx, r, artifacts, log)

	if failed := report.Failed(); len(failed) > 0 {
		return report, errors.WrapWithContext(errors.ErrCodePartialDeployment,
			fmt.Sprintf("%d of %d services failed to apply", len(failed), len(report.Services)),
			fmt.Errorf("failed services: %v", failed),
			map[string]any{
				"applied": report.Applied(),
				"failed":  failed,
			})
	}

	log.Info("deployment complete", "services", len(report.Services), "duration", report.Duration)
	return report, nil
}

func (o *Orchestrator) ensureCertManager(ctx context.Context) error {
	_, err := o.releases.EnsureRepoRelease(ctx, helm.RepoChartRequest{
		Release:   certManagerRelease,
		Chart:     certManagerChart,
		RepoURL:   certManagerRepo,
		Version:   certManagerVersion,
		Namespace: certManagerNamespace,
		Values:    map[string]any{"installCRDs": true},
		Wait:      true,
		Timeout:   o.timeout,
	})
	return err
}

// applyServices installs or upgrades every enabled service. Services are
// applied in dependency waves: a wave starts only after every apply call
// of the previous wave has been issued. Failures inside a wave do not
// stop its siblings, and later waves are still issued so one broken
// chart cannot block an unrelated one.
func (o *Orchestrator) applyServices(ctx context.Context, r *resolve.Resolved,
	artifacts []*render.Artifact, log *slog.Logger) []Outcome {

	byService := map[service.ID]*render.Artifact{}
	for _, a := range artifacts {
		byService[a.Service] = a
	}

	var mu sync.Mutex
	outcomes := map[service.ID]Outcome{}

	for _, wave := range dependencyWaves(r.Services) {
		g := new(errgroup.Group)
		for _, id := range wave {
			g.Go(func() error {
				outcome := o.applyOne(ctx, r, id, byService[id], log)
				mu.Lock()
				outcomes[id] = outcome
				mu.Unlock()
				return nil
			})
		}
		// Collect the wave before issuing dependents.
		_ = g.Wait()
	}

	ordered := make([]Outcome, 0, len(r.Services))
	for _, id := range r.Services {
		ordered = append(ordered, outcomes[id])
	}
	return ordered
}

func (o *Orchestrator) applyOne(ctx context.Context, r *resolve.Resolved,
	id service.ID, artifact *render.Artifact, log *slog.Logger) Outcome {

	outcome := Outcome{Service: id, Release: id.ReleaseName(r.Name)}

	values, err := artifact.Values()
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	opCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	info, err := o.releases.EnsureRelease(opCtx, helm.ReleaseRequest{
		Release:   outcome.Release,
		Chart:     id.Chart(),
		Namespace: r.Namespace,
		Values:    values,
		Timeout:   o.timeout,
	})
	if err != nil {
		log.Error("service apply failed", "service", id, "error", err)
		outcome.Status = OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = OutcomeApplied
	if info != nil {
		outcome.Revision = info.Revision
	}
	log.Info("service applied", "service", id, "release", outcome.Release, "revision", outcome.Revision)
	return outcome
}

// dependencyWaves groups services so each wave only depends on earlier
// waves.
func dependencyWaves(ids []service.ID) [][]service.ID {
	remaining := map[service.ID]bool{}
	for _, id := range ids {
		remaining[id] = true
	}
	done := map[service.ID]bool{}

	var waves [][]service.ID
	for len(done) < len(remaining) {
		var wave []service.ID
		for _, id := range service.Order(ids) {
			if done[id] {
				continue
			}
			ready := true
			for _, dep := range id.DependsOn() {
				if remaining[dep] && !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			break
		}
		for _, id := range wave {
			done[id] = true
		}
		waves = append(waves, wave)
	}
	return waves
}

// Redeploy triggers a rolling restart of the profile's deployments,
// optionally restricted to one service.
func (o *Orchestrator) Redeploy(ctx context.Context, name string, only *service.ID) (*RedeployReport, error) {
	if err := o.locks.acquire(name); err != nil {
		return nil, err
	}
	defer o.locks.release(name)

	p, err := o.store.Load(name)
	if err != nil {
		return nil, err
	}

	report := &RedeployReport{
		OperationID: uuid.NewString(),
		Profile:     name,
		Namespace:   p.Namespace,
	}

	targets := p.Services.Enabled()
	if only != nil {
		targets = []service.ID{*only}
	}
	releases := make([]string, 0, len(targets))
	for _, id := range targets {
		releases = append(releases, id.ReleaseName(name))
	}
	selector := fmt.Sprintf("%s in (%s)", instanceLabel, strings.Join(releases, ","))

	restarted, err := o.cluster.RestartDeployments(ctx, p.Namespace, selector)
	if err != nil {
		return report, err
	}
	report.Restarted = restarted

	slog.Info("rolling restart requested",
		"operation", report.OperationID, "profile", name, "deployments", len(restarted))
	return report, nil
}
