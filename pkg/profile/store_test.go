package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/service"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())

	p := New("demo")
	p.Domain = "linto.local"
	p.Services.STT = true
	storage := "local-path"
	p.StorageClass = &storage

	require.NoError(t, store.Save(p))

	got, err := store.Load("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, "linto.local", got.Domain)
	assert.Equal(t, TLSOff, got.TLSMode)
	assert.Equal(t, "linto", got.Namespace)
	require.NotNil(t, got.StorageClass)
	assert.Equal(t, "local-path", *got.StorageClass)
	assert.Equal(t, []service.ID{service.Studio, service.STT}, got.Services.Enabled())
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Load("ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), "got %v", err)
}

func TestFileStoreRejectsInvalidNames(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, name := range []string{"", "-leading", "has space", "../escape", "waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long"} {
		_, err := store.Load(name)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "Load(%q) got %v", name, err)
	}
}

func TestFileStoreListAndDelete(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, name := range []string{"beta", "alpha"} {
		require.NoError(t, store.Save(New(name)))
	}

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	require.NoError(t, store.Delete("alpha"))
	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, names)

	err = store.Delete("alpha")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), "got %v", err)
}

func TestFileStoreListEmptyDir(t *testing.T) {
	store := NewFileStore(t.TempDir() + "/never-created")
	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCopyResetsSecrets(t *testing.T) {
	store := NewMemStore()
	p := New("source")
	p.EnsureSecrets()
	require.NoError(t, store.Save(p))

	require.NoError(t, Copy(store, "source", "clone"))

	got, err := store.Load("clone")
	require.NoError(t, err)
	assert.Equal(t, "clone", got.Name)
	assert.Empty(t, got.Secrets.JWTSecret)

	err = Copy(store, "source", "clone")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyExists), "got %v", err)
}

func TestEnsureSecrets(t *testing.T) {
	p := New("demo")
	assert.True(t, p.EnsureSecrets())
	first := p.Secrets

	assert.NotEmpty(t, first.AdminPassword)
	assert.NotEmpty(t, first.JWTSecret)
	assert.NotEqual(t, first.JWTSecret, first.JWTRefreshSecret)

	// Re-running keeps existing values.
	assert.False(t, p.EnsureSecrets())
	assert.Equal(t, first, p.Secrets)
}

func TestValidName(t *testing.T) {
	valid := []string{"demo", "a", "Demo-2", "x1-y2"}
	for _, name := range valid {
		assert.True(t, ValidName(name), name)
	}
	invalid := []string{"", "-demo", "demo!", "a b", strings.Repeat("a", MaxNameLength+1)}
	for _, name := range invalid {
		assert.False(t, ValidName(name), name)
	}
}

func TestTLSPersistent(t *testing.T) {
	p := New("demo")
	assert.False(t, p.TLSPersistent())
	p.TLSMode = TLSACME
	assert.True(t, p.TLSPersistent())
	p.TLSMode = TLSCustom
	assert.True(t, p.TLSPersistent())
	p.TLSMode = TLSLocalCert
	assert.False(t, p.TLSPersistent())
}
