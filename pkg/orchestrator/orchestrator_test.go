package orchestrator

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/linto-ai/lintoctl/pkg/certbackup"
	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/helm"
	"github.com/linto-ai/lintoctl/pkg/k8s/cluster"
	"github.com/linto-ai/lintoctl/pkg/profile"
)

// fakeReleases is an in-memory ReleaseManager recording call order.
type fakeReleases struct {
	mu          sync.Mutex
	applied     []string
	uninstalled []string
	repoCalls   []helm.RepoChartRequest
	failOn      map[string]error
	installed   []helm.ReleaseInfo
	// block, when non-nil, stalls EnsureRelease until it is closed.
	block chan struct{}
}

func (f *fakeReleases) EnsureRelease(ctx context.Context, req helm.ReleaseRequest) (*helm.ReleaseInfo, error) {
	f.mu.Lock()
	f.applied = append(f.applied, req.Release)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.failOn[req.Release]; err != nil {
		return nil, err
	}
	return &helm.ReleaseInfo{Name: req.Release, Namespace: req.Namespace, Revision: 1}, nil
}

func (f *fakeReleases) EnsureRepoRelease(ctx context.Context, req helm.RepoChartRequest) (*helm.ReleaseInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repoCalls = append(f.repoCalls, req)
	return &helm.ReleaseInfo{Name: req.Release, Namespace: req.Namespace, Revision: 1}, nil
}

func (f *fakeReleases) Uninstall(ctx context.Context, release, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninstalled = append(f.uninstalled, release)
	return nil
}

func (f *fakeReleases) List(ctx context.Context, namespace string) ([]helm.ReleaseInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.installed), nil
}

type fixture struct {
	orch     *Orchestrator
	store    *profile.MemStore
	releases *fakeReleases
	kube     *fake.Clientset
	home     string
}

func newFixture(t *testing.T, releases *fakeReleases) *fixture {
	t.Helper()
	home := t.TempDir()
	store := profile.NewMemStore()
	kube := fake.NewClientset()
	clusterClient := cluster.New(kube)
	backups := certbackup.NewManager(filepath.Join(home, "certs"), clusterClient)

	orch := New(Options{
		Store:     store,
		Releases:  releases,
		Cluster:   clusterClient,
		Backups:   backups,
		RenderDir: func(name string) string { return filepath.Join(home, name+".values") },
		Timeout:   time.Minute,
	})
	return &fixture{orch: orch, store: store, releases: releases, kube: kube, home: home}
}

func saveProfile(t *testing.T, store profile.Store, mutate func(*profile.Profile)) {
	t.Helper()
	p := profile.New("demo")
	p.Domain = "linto.example.com"
	p.Services.STT = true
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, store.Save(p))
}

func TestDeployAppliesServicesInDependencyOrder(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, func(p *profile.Profile) {
		p.Services.Live = true
	})

	report, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)

	assert.Len(t, report.Services, 3)
	assert.Empty(t, report.Failed())
	assert.True(t, report.Rendered)

	// Studio owns the certificate, so its apply must be issued first.
	require.NotEmpty(t, f.releases.applied)
	assert.Equal(t, "demo-studio", f.releases.applied[0])
	assert.ElementsMatch(t, []string{"demo-studio", "demo-stt", "demo-live"}, f.releases.applied)

	// Namespace was ensured on the cluster.
	_, err = f.kube.CoreV1().Namespaces().Get(context.Background(), "linto", metav1.GetOptions{})
	assert.NoError(t, err)
}

// deadlineCluster records whether EnsureNamespace ran under a deadline.
type deadlineCluster struct {
	ClusterOps
	hadDeadline bool
}

func (d *deadlineCluster) EnsureNamespace(ctx context.Context, name string) error {
	_, d.hadDeadline = ctx.Deadline()
	return d.ClusterOps.EnsureNamespace(ctx, name)
}

func TestDeployBoundsNamespaceEnsure(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, nil)

	guard := &deadlineCluster{ClusterOps: f.orch.cluster}
	f.orch.cluster = guard

	_, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)
	assert.True(t, guard.hadDeadline, "namespace creation should run under the operation timeout")
}

func TestDeployPartialFailure(t *testing.T) {
	f := newFixture(t, &fakeReleases{
		failOn: map[string]error{"demo-stt": assert.AnError},
	})
	saveProfile(t, f.store, nil)

	report, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePartialDeployment), "got %v", err)

	// The successful apply is not rolled back and both results are named.
	assert.ElementsMatch(t, f.releases.applied, []string{"demo-studio", "demo-stt"})
	require.Len(t, report.Applied(), 1)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "demo-studio", string(report.Applied()[0]))
	assert.Equal(t, "demo-stt", string(report.Failed()[0]))
	assert.Empty(t, f.releases.uninstalled, "partial failure must not trigger rollback")
}

func TestDeployRejectsConcurrentOperation(t *testing.T) {
	block := make(chan struct{})
	f := newFixture(t, &fakeReleases{block: block})
	saveProfile(t, f.store, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
		done <- err
	}()

	// Wait until the first deploy is inside the apply stage.
	require.Eventually(t, func() bool {
		f.releases.mu.Lock()
		defer f.releases.mu.Unlock()
		return len(f.releases.applied) > 0
	}, 2*time.Second, 5*time.Millisecond)

	_, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConcurrentOperation), "got %v", err)

	close(block)
	require.NoError(t, <-done)

	// The lock is released, a later deploy goes through.
	_, err = f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)
}

func TestDeployReusesRenderedArtifacts(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, nil)

	first, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)
	assert.True(t, first.Rendered)

	second, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)
	assert.False(t, second.Rendered)

	forced, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{ForceRender: true})
	require.NoError(t, err)
	assert.True(t, forced.Rendered)
}

func TestDeployValidationFailsBeforeClusterMutation(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, func(p *profile.Profile) {
		p.Domain = ""
	})

	_, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "got %v", err)

	assert.Empty(t, f.releases.applied)
	_, nsErr := f.kube.CoreV1().Namespaces().Get(context.Background(), "linto", metav1.GetOptions{})
	assert.Error(t, nsErr, "validation failure must not touch the cluster")
}

func TestDeployEnsuresCertManagerForACME(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, func(p *profile.Profile) {
		p.TLSMode = profile.TLSACME
		p.ACMEEmail = "ops@example.com"
	})

	report, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)

	require.Len(t, f.releases.repoCalls, 1)
	call := f.releases.repoCalls[0]
	assert.Equal(t, "cert-manager", call.Release)
	assert.Equal(t, "https://charts.jetstack.io", call.RepoURL)
	assert.Equal(t, true, call.Values["installCRDs"])

	// No backup exists yet, absence is not an error.
	assert.False(t, report.CertsRestored)
}

func TestDeploySkipsCertManagerWithoutACME(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, nil)

	_, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)
	assert.Empty(t, f.releases.repoCalls)
}

func TestDeployGeneratesAndPersistsSecrets(t *testing.T) {
	f := newFixture(t, &fakeReleases{})
	saveProfile(t, f.store, nil)

	_, err := f.orch.Deploy(context.Background(), "demo", DeployOptions{})
	require.NoError(t, err)

	p, err := f.store.Load("demo")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Secrets.JWTSecret, "generated secrets must be persisted")
}
