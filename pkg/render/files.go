package render

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/service"
)

// WriteAll persists the artifacts under dir and returns the written
// paths. Existing artifacts are overwritten.
func WriteAll(dir string, artifacts []*Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create values directory", err)
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		// Values embed generated credentials.
		if err := os.WriteFile(path, a.Data, 0o600); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to write values artifact", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// LoadAll reads previously written artifacts for the given services.
// A missing artifact yields NOT_FOUND so callers can fall back to a
// fresh render.
func LoadAll(dir string, services []service.ID) ([]*Artifact, error) {
	artifacts := make([]*Artifact, 0, len(services))
	for _, id := range services {
		name := string(id) + "-values.yaml"
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Newf(errors.ErrCodeNotFound, "values artifact %s is missing", name)
			}
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read values artifact", err)
		}
		artifacts = append(artifacts, &Artifact{Service: id, Name: name, Data: data})
	}
	return artifacts, nil
}

// Exist reports whether every service has a persisted artifact in dir.
func Exist(dir string, services []service.ID) bool {
	for _, id := range services {
		if _, err := os.Stat(filepath.Join(dir, string(id)+"-values.yaml")); err != nil {
			return false
		}
	}
	return true
}

// Values decodes an artifact into the map form helm consumes.
func (a *Artifact) Values() (map[string]any, error) {
	values := map[string]any{}
	if err := yaml.Unmarshal(a.Data, &values); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to decode values artifact", err)
	}
	return values, nil
}
