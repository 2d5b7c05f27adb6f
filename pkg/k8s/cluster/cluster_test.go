package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

func tlsSecret(name, namespace string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:            name,
			Namespace:       namespace,
			ResourceVersion: "42",
			UID:             "abc-123",
		},
		Type: corev1.SecretTypeTLS,
		Data: map[string][]byte{
			"tls.crt": []byte("cert"),
			"tls.key": []byte("key"),
		},
	}
}

func TestEnsureNamespaceCreatesOnce(t *testing.T) {
	kube := fake.NewClientset()
	c := New(kube)

	require.NoError(t, c.EnsureNamespace(context.Background(), "linto"))
	// Second call must be a no-op.
	require.NoError(t, c.EnsureNamespace(context.Background(), "linto"))

	ns, err := kube.CoreV1().Namespaces().Get(context.Background(), "linto", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "linto", ns.Name)
}

func TestListTLSSecretsFiltersByType(t *testing.T) {
	opaque := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "registry-creds", Namespace: "linto"},
		Type:       corev1.SecretTypeOpaque,
	}
	kube := fake.NewClientset(tlsSecret("linto-tls", "linto"), opaque)
	c := New(kube)

	secrets, err := c.ListTLSSecrets(context.Background(), "linto")
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, "linto-tls", secrets[0].Name)
}

func TestApplySecretStripsServerMetadata(t *testing.T) {
	kube := fake.NewClientset()
	c := New(kube)

	require.NoError(t, c.ApplySecret(context.Background(), "linto", tlsSecret("linto-tls", "old-ns")))

	got, err := kube.CoreV1().Secrets("linto").Get(context.Background(), "linto-tls", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "linto", got.Namespace)
	assert.Empty(t, string(got.UID))

	// Applying again must update, not fail on AlreadyExists.
	updated := tlsSecret("linto-tls", "old-ns")
	updated.Data["tls.crt"] = []byte("renewed")
	require.NoError(t, c.ApplySecret(context.Background(), "linto", updated))

	got, err = kube.CoreV1().Secrets("linto").Get(context.Background(), "linto-tls", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("renewed"), got.Data["tls.crt"])
}

func deployment(name, namespace string, labels map[string]string) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec: appsv1.DeploymentSpec{
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
			},
		},
	}
}

func TestRestartDeployments(t *testing.T) {
	kube := fake.NewClientset(
		deployment("demo-studio-api", "linto", map[string]string{"app.kubernetes.io/instance": "demo-studio"}),
		deployment("demo-stt-gateway", "linto", map[string]string{"app.kubernetes.io/instance": "demo-stt"}),
	)
	c := New(kube)

	restarted, err := c.RestartDeployments(context.Background(), "linto", "app.kubernetes.io/instance=demo-stt")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo-stt-gateway"}, restarted)

	got, err := kube.AppsV1().Deployments("linto").Get(context.Background(), "demo-stt-gateway", metav1.GetOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Spec.Template.Annotations[restartedAtAnnotation])

	untouched, err := kube.AppsV1().Deployments("linto").Get(context.Background(), "demo-studio-api", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, untouched.Spec.Template.Annotations[restartedAtAnnotation])
}

func TestRestartDeploymentsAllInNamespace(t *testing.T) {
	kube := fake.NewClientset(
		deployment("a", "linto", nil),
		deployment("b", "linto", nil),
	)
	c := New(kube)

	restarted, err := c.RestartDeployments(context.Background(), "linto", "")
	require.NoError(t, err)
	assert.Len(t, restarted, 2)
}

func TestDeletePVCs(t *testing.T) {
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: "demo-stt-models", Namespace: "linto"},
	}
	kube := fake.NewClientset(pvc)
	c := New(kube)

	deleted, err := c.DeletePVCs(context.Background(), "linto")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo-stt-models"}, deleted)

	list, err := kube.CoreV1().PersistentVolumeClaims("linto").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestWrapAPIErrorNotFound(t *testing.T) {
	kube := fake.NewClientset()
	c := New(kube)

	_, err := c.kube.CoreV1().Secrets("linto").Get(context.Background(), "missing", metav1.GetOptions{})
	require.Error(t, err)
	wrapped := wrapAPIError("lookup failed", err)
	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeNotFound), "got %v", wrapped)
}

func TestWrapAPIErrorTransport(t *testing.T) {
	wrapped := wrapAPIError("dial failed", context.DeadlineExceeded)
	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeTimeout), "got %v", wrapped)

	wrapped = wrapAPIError("dial failed", assert.AnError)
	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeClusterUnreachable), "got %v", wrapped)
}
