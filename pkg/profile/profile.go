// Package profile defines deployment profiles and their persistent store.
// A profile is the single declarative document describing one platform
// installation: target domain, enabled services, TLS handling, GPU
// scheduling and storage options.
package profile

import (
	"regexp"

	"github.com/linto-ai/lintoctl/pkg/service"
)

// TLSMode selects how the platform terminates TLS.
type TLSMode string

const (
	// TLSOff serves plain HTTP.
	TLSOff TLSMode = "off"
	// TLSLocalCert generates a locally trusted certificate.
	TLSLocalCert TLSMode = "local-cert"
	// TLSACME obtains certificates from an ACME issuer via cert-manager.
	TLSACME TLSMode = "acme"
	// TLSCustom uses an operator-provided certificate and key.
	TLSCustom TLSMode = "custom"
)

// GPUMode selects how GPU resources are scheduled.
type GPUMode string

const (
	GPUNone        GPUMode = "none"
	GPUExclusive   GPUMode = "exclusive"
	GPUTimeSlicing GPUMode = "time-slicing"
)

// Services records which platform services a profile enables.
type Services struct {
	Studio bool `yaml:"studio"`
	STT    bool `yaml:"stt"`
	Live   bool `yaml:"live"`
	LLM    bool `yaml:"llm"`
}

// Enabled returns the enabled service IDs in deterministic order.
func (s Services) Enabled() []service.ID {
	var ids []service.ID
	if s.Studio {
		ids = append(ids, service.Studio)
	}
	if s.STT {
		ids = append(ids, service.STT)
	}
	if s.Live {
		ids = append(ids, service.Live)
	}
	if s.LLM {
		ids = append(ids, service.LLM)
	}
	return ids
}

// Any reports whether at least one service is enabled.
func (s Services) Any() bool {
	return s.Studio || s.STT || s.Live || s.LLM
}

// Secrets holds the generated credentials shared by the charts. Empty
// fields are filled by EnsureSecrets before first use.
type Secrets struct {
	AdminPassword    string `yaml:"adminPassword,omitempty"`
	JWTSecret        string `yaml:"jwtSecret,omitempty"`
	JWTRefreshSecret string `yaml:"jwtRefreshSecret,omitempty"`
	RedisPassword    string `yaml:"redisPassword,omitempty"`
	DatabasePassword string `yaml:"databasePassword,omitempty"`
	SessionCryptKey  string `yaml:"sessionCryptKey,omitempty"`
}

// Profile is one declarative platform installation.
type Profile struct {
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`

	// ImageTag is the profile-wide image tag. Per-service tags in
	// ServiceTags take precedence over it.
	ImageTag    string            `yaml:"imageTag,omitempty"`
	ServiceTags map[string]string `yaml:"serviceTags,omitempty"`

	TLSMode        TLSMode `yaml:"tlsMode"`
	TLSSecretName  string  `yaml:"tlsSecretName,omitempty"`
	ACMEEmail      string  `yaml:"acmeEmail,omitempty"`
	CustomCertPath string  `yaml:"customCertPath,omitempty"`
	CustomKeyPath  string  `yaml:"customKeyPath,omitempty"`

	GPUMode  GPUMode `yaml:"gpuMode"`
	GPUCount int     `yaml:"gpuCount,omitempty"`

	Services Services `yaml:"services"`

	Namespace    string  `yaml:"namespace,omitempty"`
	StorageClass *string `yaml:"storageClass,omitempty"`

	AdminEmail string `yaml:"adminEmail,omitempty"`

	// Kubeconfig optionally pins the kubeconfig used for this profile.
	Kubeconfig string `yaml:"kubeconfig,omitempty"`

	Secrets Secrets `yaml:"secrets,omitempty"`
}

const (
	// MaxNameLength bounds profile names so release names and hostnames
	// derived from them stay within label limits.
	MaxNameLength = 32

	defaultNamespace     = "linto"
	defaultTLSSecretName = "linto-tls"
	defaultImageTag      = "latest-unstable"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// ValidName reports whether name is usable as a profile name.
func ValidName(name string) bool {
	return name != "" && len(name) <= MaxNameLength && namePattern.MatchString(name)
}

// New returns a profile with defaults applied.
func New(name string) *Profile {
	return &Profile{
		Name:          name,
		ImageTag:      defaultImageTag,
		TLSMode:       TLSOff,
		TLSSecretName: defaultTLSSecretName,
		GPUMode:       GPUNone,
		Services:      Services{Studio: true},
		Namespace:     defaultNamespace,
	}
}

// ApplyDefaults fills zero-valued fields the way New does, so documents
// written by older releases keep loading.
func (p *Profile) ApplyDefaults() {
	if p.ImageTag == "" {
		p.ImageTag = defaultImageTag
	}
	if p.TLSMode == "" {
		p.TLSMode = TLSOff
	}
	if p.TLSSecretName == "" {
		p.TLSSecretName = defaultTLSSecretName
	}
	if p.GPUMode == "" {
		p.GPUMode = GPUNone
	}
	if p.Namespace == "" {
		p.Namespace = defaultNamespace
	}
}

// TLSPersistent reports whether the profile's certificates are worth
// backing up across teardowns.
func (p *Profile) TLSPersistent() bool {
	return p.TLSMode == TLSACME || p.TLSMode == TLSCustom
}

// URLScheme returns the scheme the platform is reachable under.
func (p *Profile) URLScheme() string {
	if p.TLSMode == TLSOff {
		return "http"
	}
	return "https"
}
