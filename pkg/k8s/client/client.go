// Package client builds Kubernetes clients from kubeconfig sources.
package client

import (
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// ResolveKubeconfig picks the kubeconfig path for one invocation: the
// explicit path when given, then KUBECONFIG, then ~/.kube/config when it
// exists. An empty result falls through to in-cluster configuration.
func ResolveKubeconfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	kubeconfig := filepath.Join(homedir.HomeDir(), ".kube", "config")
	if _, err := os.Stat(kubeconfig); os.IsNotExist(err) {
		return ""
	}
	return kubeconfig
}

// Build creates a Kubernetes client from the given kubeconfig file. An
// empty path uses automatic discovery via ResolveKubeconfig.
func Build(kubeconfig string) (*kubernetes.Clientset, *rest.Config, error) {
	cfg, err := clientcmd.BuildConfigFromFlags("", ResolveKubeconfig(kubeconfig))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeClusterUnreachable, "failed to build kube config", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeClusterUnreachable, "failed to create kubernetes client", err)
	}

	return clientset, cfg, nil
}
