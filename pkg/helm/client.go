// Package helm drives chart installs, upgrades and uninstalls through
// the Helm SDK. An action configuration is created per operation so each
// call targets its own namespace.
package helm

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	helmcli "helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/utils/ptr"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// Client is the SDK-backed ReleaseManager.
type Client struct {
	kubeconfig string
	chartDir   string
	settings   *helmcli.EnvSettings
	logger     *slog.Logger
}

// NewClient returns a ReleaseManager using the given kubeconfig path and
// local chart root.
func NewClient(kubeconfig, chartDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		kubeconfig: kubeconfig,
		chartDir:   chartDir,
		settings:   helmcli.New(),
		logger:     logger,
	}
}

// newActionConfig builds a fresh action configuration bound to one
// namespace, using the secret storage driver.
func (c *Client) newActionConfig(namespace string) (*action.Configuration, error) {
	flags := genericclioptions.NewConfigFlags(false)
	if c.kubeconfig != "" {
		flags.KubeConfig = ptr.To(c.kubeconfig)
	}
	flags.Namespace = ptr.To(namespace)

	cfg := new(action.Configuration)
	debugLog := func(format string, v ...interface{}) {
		c.logger.Debug(fmt.Sprintf(format, v...))
	}
	if err := cfg.Init(flags, namespace, "secret", debugLog); err != nil {
		return nil, errors.Wrap(errors.ErrCodeClusterUnreachable, "failed to initialize helm configuration", err)
	}
	return cfg, nil
}

func (c *Client) loadLocalChart(name string) (*chart.Chart, error) {
	ch, err := loader.Load(filepath.Join(c.chartDir, name))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("failed to load chart %s", name), err)
	}
	return ch, nil
}

// wrapHelmError classifies a helm SDK failure. Transport failures are
// tagged unreachable so callers can tell a broken cluster connection
// from a broken chart.
func wrapHelmError(message string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, message, err)
	}
	if stderrors.Is(err, driver.ErrReleaseNotFound) {
		return errors.Wrap(errors.ErrCodeNotFound, message, err)
	}
	var urlErr *url.Error
	var netErr net.Error
	if stderrors.As(err, &urlErr) || stderrors.As(err, &netErr) {
		return errors.Wrap(errors.ErrCodeClusterUnreachable, message, err)
	}
	return errors.Wrap(errors.ErrCodeInternal, message, err)
}

func toInfo(rel *release.Release) *ReleaseInfo {
	if rel == nil {
		return nil
	}
	info := &ReleaseInfo{
		Name:      rel.Name,
		Namespace: rel.Namespace,
		Revision:  rel.Version,
	}
	if rel.Chart != nil && rel.Chart.Metadata != nil {
		info.Chart = rel.Chart.Metadata.Name
		info.Version = rel.Chart.Metadata.Version
	}
	if rel.Info != nil {
		info.Status = rel.Info.Status.String()
		info.Updated = rel.Info.LastDeployed.Time
	}
	return info
}

// releaseExists checks whether a release has any stored revision.
func releaseExists(cfg *action.Configuration, name string) (bool, error) {
	history := action.NewHistory(cfg)
	history.Max = 1
	_, err := history.Run(name)
	if stderrors.Is(err, driver.ErrReleaseNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapHelmError("failed to query release history", err)
	}
	return true, nil
}

// EnsureRelease installs or upgrades one local chart.
func (c *Client) EnsureRelease(ctx context.Context, req ReleaseRequest) (*ReleaseInfo, error) {
	ch, err := c.loadLocalChart(req.Chart)
	if err != nil {
		return nil, err
	}
	return c.ensure(ctx, ch, req.Release, req.Namespace, req.Values, req.Wait, req.Timeout)
}

// EnsureRepoRelease installs or upgrades a chart located in a remote
// repository.
func (c *Client) EnsureRepoRelease(ctx context.Context, req RepoChartRequest) (*ReleaseInfo, error) {
	locate := action.ChartPathOptions{RepoURL: req.RepoURL, Version: req.Version}
	path, err := locate.LocateChart(req.Chart, c.settings)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound,
			fmt.Sprintf("failed to locate chart %s in %s", req.Chart, req.RepoURL), err)
	}
	ch, err := loader.Load(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to load downloaded chart", err)
	}
	return c.ensure(ctx, ch, req.Release, req.Namespace, req.Values, req.Wait, req.Timeout)
}

func (c *Client) ensure(ctx context.Context, ch *chart.Chart, name, namespace string,
	values map[string]any, wait bool, timeout time.Duration) (*ReleaseInfo, error) {

	cfg, err := c.newActionConfig(namespace)
	if err != nil {
		return nil, err
	}

	exists, err := releaseExists(cfg, name)
	if err != nil {
		return nil, err
	}

	if values == nil {
		values = map[string]any{}
	}

	if !exists {
		install := action.NewInstall(cfg)
		install.ReleaseName = name
		install.Namespace = namespace
		install.CreateNamespace = true
		install.Wait = wait
		install.Timeout = timeout

		rel, err := install.RunWithContext(ctx, ch, values)
		if err != nil {
			return toInfo(rel), wrapHelmError(fmt.Sprintf("failed to install release %s", name), err)
		}
		c.logger.Info("release installed", "release", name, "namespace", namespace)
		return toInfo(rel), nil
	}

	upgrade := action.NewUpgrade(cfg)
	upgrade.Namespace = namespace
	upgrade.Wait = wait
	upgrade.Timeout = timeout

	rel, err := upgrade.RunWithContext(ctx, name, ch, values)
	if err != nil {
		return toInfo(rel), wrapHelmError(fmt.Sprintf("failed to upgrade release %s", name), err)
	}
	c.logger.Info("release upgraded", "release", name, "namespace", namespace, "revision", rel.Version)
	return toInfo(rel), nil
}

// Uninstall removes a release. Releases that are already gone are
// treated as removed.
func (c *Client) Uninstall(ctx context.Context, name, namespace string) error {
	cfg, err := c.newActionConfig(namespace)
	if err != nil {
		return err
	}

	uninstall := action.NewUninstall(cfg)
	if deadline, ok := ctx.Deadline(); ok {
		uninstall.Timeout = time.Until(deadline)
	}

	_, err = uninstall.Run(name)
	if err != nil && !stderrors.Is(err, driver.ErrReleaseNotFound) {
		return wrapHelmError(fmt.Sprintf("failed to uninstall release %s", name), err)
	}
	c.logger.Info("release uninstalled", "release", name, "namespace", namespace)
	return nil
}

// List returns every release deployed in the namespace.
func (c *Client) List(ctx context.Context, namespace string) ([]ReleaseInfo, error) {
	cfg, err := c.newActionConfig(namespace)
	if err != nil {
		return nil, err
	}

	list := action.NewList(cfg)
	list.All = true

	releases, err := list.Run()
	if err != nil {
		return nil, wrapHelmError("failed to list releases", err)
	}

	infos := make([]ReleaseInfo, 0, len(releases))
	for _, rel := range releases {
		infos = append(infos, *toInfo(rel))
	}
	return infos, nil
}
