package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// Store persists profiles by name.
type Store interface {
	Load(name string) (*Profile, error)
	Save(p *Profile) error
	List() ([]string, error)
	Delete(name string) error
}

// FileStore keeps one YAML document per profile under a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created
// lazily on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// Load reads one profile and applies defaults for omitted fields.
func (s *FileStore) Load(name string) (*Profile, error) {
	if !ValidName(name) {
		return nil, errors.Newf(errors.ErrCodeValidation, "invalid profile name %q", name)
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "profile %q not found", name)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read profile", err)
	}

	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, "malformed profile document", err)
	}
	if p.Name == "" {
		p.Name = name
	}
	p.ApplyDefaults()
	return p, nil
}

// Save writes the profile document, replacing any previous version.
func (s *FileStore) Save(p *Profile) error {
	if !ValidName(p.Name) {
		return errors.Newf(errors.ErrCodeValidation, "invalid profile name %q", p.Name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create profile directory", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode profile", err)
	}
	// Profiles carry secrets, keep them private to the owner.
	if err := os.WriteFile(s.path(p.Name), data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write profile", err)
	}
	return nil
}

// List returns the names of all stored profiles, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to list profiles", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes one profile document.
func (s *FileStore) Delete(name string) error {
	if !ValidName(name) {
		return errors.Newf(errors.ErrCodeValidation, "invalid profile name %q", name)
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrCodeNotFound, "profile %q not found", name)
		}
		return errors.Wrap(errors.ErrCodeInternal, "failed to delete profile", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{profiles: map[string]*Profile{}}
}

func (s *MemStore) Load(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "profile %q not found", name)
	}
	clone := *p
	clone.ApplyDefaults()
	return &clone, nil
}

func (s *MemStore) Save(p *Profile) error {
	if !ValidName(p.Name) {
		return errors.Newf(errors.ErrCodeValidation, "invalid profile name %q", p.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *p
	s.profiles[p.Name] = &clone
	return nil
}

func (s *MemStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[name]; !ok {
		return errors.Newf(errors.ErrCodeNotFound, "profile %q not found", name)
	}
	delete(s.profiles, name)
	return nil
}

// Copy duplicates a stored profile under a new name. Generated secrets
// are reset so the copy gets its own credentials.
func Copy(store Store, from, to string) error {
	if !ValidName(to) {
		return errors.Newf(errors.ErrCodeValidation, "invalid profile name %q", to)
	}
	if _, err := store.Load(to); err == nil {
		return errors.Newf(errors.ErrCodeAlreadyExists, "profile %q already exists", to)
	}

	p, err := store.Load(from)
	if err != nil {
		return err
	}
	p.Name = to
	p.Secrets = Secrets{}
	return store.Save(p)
}
