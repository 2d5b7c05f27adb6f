// Package cluster wraps the Kubernetes operations the orchestrator
// needs: namespace management, TLS secret handling, rolling restarts and
// volume removal.
package cluster

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// restartedAtAnnotation is the pod template annotation kubectl rollout
// restart uses; patching it triggers a rolling restart.
const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// Client performs cluster-side operations for one target cluster.
type Client struct {
	kube kubernetes.Interface
}

// New returns a Client on top of an existing clientset.
func New(kube kubernetes.Interface) *Client {
	return &Client{kube: kube}
}

// wrapAPIError classifies a client-go error. Transport-level failures
// become CLUSTER_UNREACHABLE, deadline hits become OPERATION_TIMEOUT and
// API rejections stay internal.
func wrapAPIError(message string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded) || apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err):
		return errors.Wrap(errors.ErrCodeTimeout, message, err)
	case apierrors.IsNotFound(err):
		return errors.Wrap(errors.ErrCodeNotFound, message, err)
	}
	var status apierrors.APIStatus
	if stderrors.As(err, &status) {
		// The API server answered, so the cluster is reachable.
		return errors.Wrap(errors.ErrCodeInternal, message, err)
	}
	return errors.Wrap(errors.ErrCodeClusterUnreachable, message, err)
}

// EnsureNamespace creates the namespace when it does not exist yet.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	_, err := c.kube.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return wrapAPIError("failed to query namespace", err)
	}

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err = c.kube.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return wrapAPIError("failed to create namespace", err)
	}
	slog.Debug("namespace ensured", "namespace", name)
	return nil
}

// ListTLSSecrets returns the TLS secrets in a namespace.
func (c *Client) ListTLSSecrets(ctx context.Context, namespace string) ([]corev1.Secret, error) {
	list, err := c.kube.CoreV1().Secrets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, wrapAPIError("failed to list secrets", err)
	}

	var secrets []corev1.Secret
	for _, s := range list.Items {
		if s.Type == corev1.SecretTypeTLS {
			secrets = append(secrets, s)
		}
	}
	return secrets, nil
}

// ApplySecret creates or replaces a secret. Server-assigned metadata is
// stripped so secrets captured from one cluster state can be re-applied.
func (c *Client) ApplySecret(ctx context.Context, namespace string, secret *corev1.Secret) error {
	clean := secret.DeepCopy()
	clean.Namespace = namespace
	clean.ResourceVersion = ""
	clean.UID = ""
	clean.CreationTimestamp = metav1.Time{}
	clean.ManagedFields = nil

	_, err := c.kube.CoreV1().Secrets(namespace).Create(ctx, clean, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		_, err = c.kube.CoreV1().Secrets(namespace).Update(ctx, clean, metav1.UpdateOptions{})
	}
	if err != nil {
		return wrapAPIError(fmt.Sprintf("failed to apply secret %s", clean.Name), err)
	}
	return nil
}

// RestartDeployments triggers a rolling restart of every deployment
// matching the label selector and returns the restarted names. An empty
// selector matches the whole namespace.
func (c *Client) RestartDeployments(ctx context.Context, namespace, selector string) ([]string, error) {
	list, err := c.kube.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, wrapAPIError("failed to list deployments", err)
	}

	patch := fmt.Sprintf(
		`{"spec":{"template":{"metadata":{"annotations":{%q:%q}}}}}`,
		restartedAtAnnotation, time.Now().UTC().Format(time.RFC3339))

	restarted := make([]string, 0, len(list.Items))
	for _, d := range list.Items {
		_, err := c.kube.AppsV1().Deployments(namespace).Patch(
			ctx, d.Name, types.StrategicMergePatchType, []byte(patch), metav1.PatchOptions{})
		if err != nil {
			return restarted, wrapAPIError(fmt.Sprintf("failed to restart deployment %s", d.Name), err)
		}
		restarted = append(restarted, d.Name)
		slog.Debug("deployment restart requested", "deployment", d.Name, "namespace", namespace)
	}
	return restarted, nil
}

// ListDeployments returns the deployments matching the selector.
func (c *Client) ListDeployments(ctx context.Context, namespace, selector string) ([]appsv1.Deployment, error) {
	list, err := c.kube.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, wrapAPIError("failed to list deployments", err)
	}
	return list.Items, nil
}

// DeletePVCs removes every persistent volume claim in the namespace and
// returns the deleted names.
func (c *Client) DeletePVCs(ctx context.Context, namespace string) ([]string, error) {
	list, err := c.kube.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, wrapAPIError("failed to list volume claims", err)
	}

	deleted := make([]string, 0, len(list.Items))
	for _, pvc := range list.Items {
		err := c.kube.CoreV1().PersistentVolumeClaims(namespace).Delete(ctx, pvc.Name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return deleted, wrapAPIError(fmt.Sprintf("failed to delete volume claim %s", pvc.Name), err)
		}
		deleted = append(deleted, pvc.Name)
	}
	return deleted, nil
}

// ListPods returns the pods matching the label selector.
func (c *Client) ListPods(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	list, err := c.kube.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, wrapAPIError("failed to list pods", err)
	}
	return list.Items, nil
}
