package orchestrator

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/service"
)

// Destroy tears a deployment down: certificates are captured first when
// the profile uses durable TLS, then every release is uninstalled in
// reverse dependency order, then volumes and rendered files are removed
// when requested. A failed certificate backup aborts volume removal but
// never blocks the uninstall itself.
func (o *Orchestrator) Destroy(ctx context.Context, name string, opts DestroyOptions) (*DestroyReport, error) {
	if err := o.locks.acquire(name); err != nil {
		return nil, err
	}
	defer o.locks.release(name)

	p, err := o.store.Load(name)
	if err != nil {
		return nil, err
	}

	report := &DestroyReport{
		OperationID: uuid.NewString(),
		Profile:     name,
		Namespace:   p.Namespace,
	}
	log := slog.With("operation", report.OperationID, "profile", name)
	log.Info("teardown started")

	backupOK := true
	if p.TLSPersistent() {
		ref, err := o.backups.Backup(ctx, name, p.Namespace)
		if err != nil {
			backupOK = false
			log.Error("certificate backup failed", "error", err)
			if opts.RemoveVolumes {
				report.VolumesSkipped = "certificate backup failed: " + err.Error()
			}
		} else {
			report.BackedUpCerts = ref.Secrets
		}
	}

	// Always re-query the cluster instead of trusting local state.
	installed, err := o.releases.List(ctx, p.Namespace)
	if err != nil {
		return report, err
	}
	installedNames := map[string]bool{}
	for _, rel := range installed {
		installedNames[rel.Name] = true
	}

	// Releases of disabled services from earlier deployments are removed
	// too, so teardown is driven by the cluster, not the profile.
	for _, id := range service.ReverseOrder(service.All()) {
		release := id.ReleaseName(name)
		if !installedNames[release] {
			continue
		}
		if err := o.releases.Uninstall(ctx, release, p.Namespace); err != nil {
			return report, err
		}
		report.Uninstalled = append(report.Uninstalled, release)
	}

	if opts.RemoveVolumes {
		if !backupOK {
			log.Warn("skipping volume removal, certificates are not safely backed up")
		} else {
			deleted, err := o.cluster.DeletePVCs(ctx, p.Namespace)
			if err != nil {
				return report, err
			}
			report.VolumesDeleted = deleted
		}
	}

	if opts.RemoveFiles {
		if err := os.RemoveAll(o.renderDir(name)); err != nil {
			return report, errors.Wrap(errors.ErrCodeInternal, "failed to remove rendered values", err)
		}
		report.FilesRemoved = true
	}

	log.Info("teardown complete",
		"uninstalled", len(report.Uninstalled),
		"volumesDeleted", len(report.VolumesDeleted))
	return report, nil
}
