// Package manifest models the platform version manifest: the mapping
// from service to image coordinates published for one platform release.
package manifest

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// Image holds the coordinates of one published container image.
type Image struct {
	Repository string `yaml:"repository,omitempty"`
	Tag        string `yaml:"tag,omitempty"`
	Digest     string `yaml:"digest,omitempty"`
	Commit     string `yaml:"commit,omitempty"`
}

// Manifest is one platform release manifest. Services missing from the
// document fall back to PlatformVersion.
type Manifest struct {
	PlatformVersion string           `yaml:"platformVersion"`
	Services        map[string]Image `yaml:"services,omitempty"`
}

// FromTag returns a manifest pinning every service to a single tag, used
// when no manifest file is available.
func FromTag(tag string) *Manifest {
	return &Manifest{PlatformVersion: tag}
}

// Load reads a manifest document from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, "version manifest not found", err)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read version manifest", err)
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, "malformed version manifest", err)
	}
	if m.PlatformVersion == "" {
		return nil, errors.New(errors.ErrCodeValidation, "version manifest is missing platformVersion")
	}
	return m, nil
}

// TagFor returns the manifest tag for a service, falling back to the
// platform version when the service carries no explicit entry.
func (m *Manifest) TagFor(name string) string {
	if m == nil {
		return ""
	}
	if img, ok := m.Services[name]; ok && img.Tag != "" {
		return img.Tag
	}
	return m.PlatformVersion
}

// ImageFor returns the full image entry for a service when present.
func (m *Manifest) ImageFor(name string) (Image, bool) {
	if m == nil {
		return Image{}, false
	}
	img, ok := m.Services[name]
	return img, ok
}
