// Package certbackup persists TLS secrets across teardowns so profiles
// using rate-limited ACME issuers or operator-provided certificates do
// not lose them when the namespace is destroyed.
package certbackup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	corev1 "k8s.io/api/core/v1"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

const backupFileName = "tls-secrets.yaml"

// SecretClient is the slice of cluster operations the backup manager
// needs.
type SecretClient interface {
	ListTLSSecrets(ctx context.Context, namespace string) ([]corev1.Secret, error)
	ApplySecret(ctx context.Context, namespace string, secret *corev1.Secret) error
}

// Ref describes one stored backup.
type Ref struct {
	Profile   string    `json:"profile"`
	Path      string    `json:"path"`
	Secrets   []string  `json:"secrets"`
	CreatedAt time.Time `json:"createdAt"`
}

type document struct {
	Profile   string          `json:"profile"`
	CreatedAt time.Time       `json:"createdAt"`
	Secrets   []corev1.Secret `json:"secrets"`
}

// Manager reads and writes per-profile backups under one directory.
type Manager struct {
	dir     string
	cluster SecretClient
}

// NewManager returns a Manager rooted at dir.
func NewManager(dir string, cluster SecretClient) *Manager {
	return &Manager{dir: dir, cluster: cluster}
}

func (m *Manager) path(profile string) string {
	return filepath.Join(m.dir, profile, backupFileName)
}

// Backup captures the namespace's TLS secrets into the profile's backup
// file, replacing any previous backup. When the namespace holds no TLS
// secrets the existing backup is left untouched, so a teardown shortly
// after a failed issuance cannot clobber the last good capture.
func (m *Manager) Backup(ctx context.Context, profile, namespace string) (*Ref, error) {
	secrets, err := m.cluster.ListTLSSecrets(ctx, namespace)
	if err != nil {
		return nil, err
	}

	ref := &Ref{Profile: profile, CreatedAt: time.Now().UTC()}
	if len(secrets) == 0 {
		slog.Info("no TLS secrets to back up", "profile", profile, "namespace", namespace)
		return ref, nil
	}

	doc := document{Profile: profile, CreatedAt: ref.CreatedAt, Secrets: secrets}
	data, err := sigsyaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode certificate backup", err)
	}

	path := m.path(profile)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create backup directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to write certificate backup", err)
	}

	ref.Path = path
	for _, s := range secrets {
		ref.Secrets = append(ref.Secrets, s.Name)
	}
	slog.Info("TLS secrets backed up", "profile", profile, "count", len(secrets), "path", path)
	return ref, nil
}

// Restore re-applies the profile's backed-up secrets into the namespace.
// The boolean reports whether a backup existed; a missing backup is not
// an error.
func (m *Manager) Restore(ctx context.Context, profile, namespace string) (bool, error) {
	data, err := os.ReadFile(m.path(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.ErrCodeInternal, "failed to read certificate backup", err)
	}

	doc := document{}
	if err := sigsyaml.Unmarshal(data, &doc); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, "malformed certificate backup", err)
	}

	for i := range doc.Secrets {
		if err := m.cluster.ApplySecret(ctx, namespace, &doc.Secrets[i]); err != nil {
			return true, errors.Wrap(errors.CodeOf(err),
				fmt.Sprintf("failed to restore secret %s", doc.Secrets[i].Name), err)
		}
	}
	slog.Info("TLS secrets restored", "profile", profile, "count", len(doc.Secrets))
	return true, nil
}

// Describe returns the stored backup's metadata without touching the
// cluster.
func (m *Manager) Describe(profile string) (*Ref, error) {
	data, err := os.ReadFile(m.path(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "no certificate backup for profile %q", profile)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read certificate backup", err)
	}

	doc := document{}
	if err := sigsyaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "malformed certificate backup", err)
	}

	ref := &Ref{Profile: doc.Profile, Path: m.path(profile), CreatedAt: doc.CreatedAt}
	for _, s := range doc.Secrets {
		ref.Secrets = append(ref.Secrets, s.Name)
	}
	return ref, nil
}

// Delete removes the profile's backup if present.
func (m *Manager) Delete(profile string) error {
	err := os.RemoveAll(filepath.Join(m.dir, profile))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to delete certificate backup", err)
	}
	return nil
}
