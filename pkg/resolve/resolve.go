// Package resolve turns a profile, a version manifest and explicit
// overrides into one fully validated, internally consistent view of the
// desired deployment. Every later stage consumes the Resolved snapshot
// instead of re-reading the profile.
package resolve

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/distribution/reference"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/manifest"
	"github.com/linto-ai/lintoctl/pkg/profile"
	"github.com/linto-ai/lintoctl/pkg/service"
)

// Overrides are explicit key/value settings that win over every other
// configuration source. Recognized keys are domain, namespace, imageTag,
// storageClass, tlsSecretName, acmeEmail and tag.<service>.
type Overrides map[string]string

// TagPolicy decides which image tags are floating. Floating tags get an
// Always pull policy so re-deployments pick up new pushes.
type TagPolicy struct {
	FloatingPrefixes []string
}

// DefaultTagPolicy treats latest-style tags as floating.
func DefaultTagPolicy() TagPolicy {
	return TagPolicy{FloatingPrefixes: []string{"latest"}}
}

// Floating reports whether tag matches one of the floating prefixes.
func (p TagPolicy) Floating(tag string) bool {
	for _, prefix := range p.FloatingPrefixes {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}

// Image is the resolved image coordinate for one service.
type Image struct {
	Repository string
	Tag        string
	PullPolicy string
}

// Ref returns the repository:tag form.
func (i Image) Ref() string {
	return i.Repository + ":" + i.Tag
}

// Resolved is the validated desired state of one deployment.
type Resolved struct {
	Name      string
	Domain    string
	Namespace string
	Scheme    string

	TLSMode        profile.TLSMode
	TLSSecretName  string
	ACMEEmail      string
	CustomCertPath string
	CustomKeyPath  string

	GPUMode  profile.GPUMode
	GPUCount int

	// StorageClass is empty when the cluster default should be used.
	StorageClass string

	// Services lists the enabled services in dependency order.
	Services []service.ID
	Images   map[service.ID]Image

	AdminEmail string
	Secrets    profile.Secrets
}

// ValidationError aggregates every violated constraint found in one
// resolution pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d constraint violation(s): %s",
		len(e.Violations), strings.Join(e.Violations, "; "))
}

var (
	hostnamePattern = regexp.MustCompile(
		`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	namespacePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	emailPattern     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

var scalarOverrideKeys = map[string]bool{
	"domain":        true,
	"namespace":     true,
	"imageTag":      true,
	"storageClass":  true,
	"tlsSecretName": true,
	"acmeEmail":     true,
}

// defaultRepositories maps each service to its published image when the
// manifest carries no explicit repository.
var defaultRepositories = map[service.ID]string{
	service.Studio: "lintoai/linto-studio",
	service.STT:    "lintoai/linto-stt",
	service.Live:   "lintoai/linto-live",
	service.LLM:    "lintoai/linto-llm-gateway",
}

// Resolve validates the profile together with the overrides and produces
// the resolved deployment view. All violations are collected into one
// ValidationError rather than failing on the first.
func Resolve(p *profile.Profile, m *manifest.Manifest, o Overrides, policy TagPolicy) (*Resolved, error) {
	var violations []string
	fail := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if !profile.ValidName(p.Name) {
		fail("name %q must match [a-zA-Z0-9][a-zA-Z0-9-]* and be at most %d characters", p.Name, profile.MaxNameLength)
	}

	for key := range o {
		if scalarOverrideKeys[key] {
			continue
		}
		if svc, ok := strings.CutPrefix(key, "tag."); ok {
			if _, err := service.Parse(svc); err != nil {
				fail("override %q targets an unknown service", key)
			}
			continue
		}
		fail("unknown override key %q", key)
	}

	pick := func(key, profileValue string) string {
		if v, ok := o[key]; ok {
			return v
		}
		return profileValue
	}

	domain := pick("domain", p.Domain)
	if domain == "" {
		fail("domain is required")
	} else if !hostnamePattern.MatchString(domain) {
		fail("domain %q is not a valid hostname", domain)
	}

	namespace := pick("namespace", p.Namespace)
	if !namespacePattern.MatchString(namespace) || len(namespace) > 63 {
		fail("namespace %q is not a valid DNS label", namespace)
	}

	switch p.TLSMode {
	case profile.TLSOff, profile.TLSLocalCert, profile.TLSACME, profile.TLSCustom:
	default:
		fail("tlsMode %q is not one of off, local-cert, acme, custom", p.TLSMode)
	}

	acmeEmail := pick("acmeEmail", p.ACMEEmail)
	if p.TLSMode == profile.TLSACME {
		if acmeEmail == "" {
			fail("tlsMode acme requires acmeEmail")
		} else if !emailPattern.MatchString(acmeEmail) {
			fail("acmeEmail %q is not a valid address", acmeEmail)
		}
	}
	if p.TLSMode == profile.TLSCustom {
		if p.CustomCertPath == "" || p.CustomKeyPath == "" {
			fail("tlsMode custom requires customCertPath and customKeyPath")
		}
	}

	switch p.GPUMode {
	case profile.GPUNone:
	case profile.GPUExclusive, profile.GPUTimeSlicing:
		if p.GPUCount < 1 {
			fail("gpuMode %s requires gpuCount >= 1", p.GPUMode)
		}
	default:
		fail("gpuMode %q is not one of none, exclusive, time-slicing", p.GPUMode)
	}

	enabled := p.Services.Enabled()
	if len(enabled) == 0 {
		fail("at least one service must be enabled")
	}
	for name := range p.ServiceTags {
		if _, err := service.Parse(name); err != nil {
			fail("serviceTags entry %q targets an unknown service", name)
		}
	}

	images := map[service.ID]Image{}
	for _, id := range enabled {
		img := resolveImage(id, p, m, o, policy)
		if _, err := reference.ParseDockerRef(img.Ref()); err != nil {
			fail("image %q for service %s is not a valid reference", img.Ref(), id)
			continue
		}
		images[id] = img
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		return nil, errors.WrapWithContext(errors.ErrCodeValidation,
			"profile validation failed",
			&ValidationError{Violations: violations},
			map[string]any{"profile": p.Name, "violations": violations})
	}

	storageClass := ""
	if p.StorageClass != nil {
		storageClass = *p.StorageClass
	}
	storageClass = pick("storageClass", storageClass)

	r := &Resolved{
		Name:           p.Name,
		Domain:         domain,
		Namespace:      namespace,
		Scheme:         p.URLScheme(),
		TLSMode:        p.TLSMode,
		TLSSecretName:  pick("tlsSecretName", p.TLSSecretName),
		ACMEEmail:      acmeEmail,
		CustomCertPath: p.CustomCertPath,
		CustomKeyPath:  p.CustomKeyPath,
		GPUMode:        p.GPUMode,
		GPUCount:       p.GPUCount,
		StorageClass:   storageClass,
		Services:       service.Order(enabled),
		Images:         images,
		AdminEmail:     p.AdminEmail,
		Secrets:        p.Secrets,
	}
	return r, nil
}

// resolveImage applies the precedence chain for one service image:
// explicit override, then the profile, then the version manifest, then
// the built-in default.
func resolveImage(id service.ID, p *profile.Profile, m *manifest.Manifest, o Overrides, policy TagPolicy) Image {
	tag := ""
	switch {
	case o["tag."+string(id)] != "":
		tag = o["tag."+string(id)]
	case o["imageTag"] != "":
		tag = o["imageTag"]
	case p.ServiceTags[string(id)] != "":
		tag = p.ServiceTags[string(id)]
	case m.TagFor(string(id)) != "":
		tag = m.TagFor(string(id))
	default:
		tag = p.ImageTag
	}

	repo := defaultRepositories[id]
	if img, ok := m.ImageFor(string(id)); ok && img.Repository != "" {
		repo = img.Repository
	}

	pullPolicy := "IfNotPresent"
	if policy.Floating(tag) {
		pullPolicy = "Always"
	}

	return Image{Repository: repo, Tag: tag, PullPolicy: pullPolicy}
}

// Enabled reports whether the resolved deployment includes the service.
func (r *Resolved) Enabled(id service.ID) bool {
	for _, s := range r.Services {
		if s == id {
			return true
		}
	}
	return false
}
