// Package render produces the per-service helm values artifacts from a
// resolved deployment. Rendering is deterministic: the same resolved
// input always yields byte-identical artifacts.
package render

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/resolve"
	"github.com/linto-ai/lintoctl/pkg/service"
)

// Artifact is one rendered values document.
type Artifact struct {
	Service service.ID
	// Name is the artifact file name, <service>-values.yaml.
	Name string
	Data []byte
}

// Render produces one artifact per enabled service. Internally
// inconsistent resolved state is rejected with RENDER_INCONSISTENT
// rather than silently producing a broken artifact.
func Render(r *resolve.Resolved) ([]*Artifact, error) {
	if err := checkConsistency(r); err != nil {
		return nil, err
	}

	artifacts := make([]*Artifact, 0, len(r.Services))
	for _, id := range r.Services {
		values := map[string]any{
			"global": globalValues(r, id),
		}
		for k, v := range serviceValues(r, id) {
			values[k] = v
		}

		data, err := yaml.Marshal(values)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode values", err)
		}
		artifacts = append(artifacts, &Artifact{
			Service: id,
			Name:    fmt.Sprintf("%s-values.yaml", id),
			Data:    data,
		})
	}
	return artifacts, nil
}

// checkConsistency rejects resolved state the resolver should never have
// produced. Hitting one of these means a bug upstream, not bad input.
func checkConsistency(r *resolve.Resolved) error {
	inconsistent := func(format string, args ...any) error {
		return errors.Newf(errors.ErrCodeRenderInconsistent, format, args...)
	}

	if len(r.Services) == 0 {
		return inconsistent("resolved deployment enables no services")
	}
	if r.Domain == "" {
		return inconsistent("resolved deployment has no domain")
	}
	if r.TLSMode != "off" && r.TLSSecretName == "" {
		return inconsistent("TLS is enabled but no secret name is resolved")
	}
	if r.GPUMode != "none" && r.GPUCount < 1 {
		return inconsistent("GPU mode %s resolved with count %d", r.GPUMode, r.GPUCount)
	}
	for _, id := range r.Services {
		img, ok := r.Images[id]
		if !ok || img.Repository == "" || img.Tag == "" {
			return inconsistent("service %s resolved without an image", id)
		}
	}
	return nil
}

// globalValues is the block shared by every chart.
func globalValues(r *resolve.Resolved, id service.ID) map[string]any {
	tls := map[string]any{
		"enabled": r.TLSMode != "off",
		"mode":    string(r.TLSMode),
	}
	if r.TLSMode != "off" {
		tls["secretName"] = r.TLSSecretName
	}
	if r.TLSMode == "acme" {
		tls["acmeEmail"] = r.ACMEEmail
		// Only the studio chart creates the Certificate resource, the
		// other charts reference the shared secret.
		tls["createCertificate"] = id == service.Studio
	}

	global := map[string]any{
		"domain": r.Domain,
		"tls":    tls,
	}
	if r.StorageClass != "" {
		global["storageClass"] = r.StorageClass
	}
	return global
}

func imageValues(img resolve.Image) map[string]any {
	return map[string]any{
		"repository": img.Repository,
		"tag":        img.Tag,
		"pullPolicy": img.PullPolicy,
	}
}

// gpuValues returns the container resource block for GPU workloads, or
// nil when the deployment runs on CPU.
func gpuValues(r *resolve.Resolved) map[string]any {
	if r.GPUMode == "none" {
		return nil
	}
	resources := map[string]any{
		"limits": map[string]any{
			"nvidia.com/gpu": r.GPUCount,
		},
	}
	if r.GPUMode == "exclusive" {
		resources["requests"] = map[string]any{
			"nvidia.com/gpu": r.GPUCount,
		}
	}
	return resources
}

func serviceValues(r *resolve.Resolved, id service.ID) map[string]any {
	switch id {
	case service.Studio:
		return studioValues(r)
	case service.STT:
		return sttValues(r)
	case service.Live:
		return liveValues(r)
	case service.LLM:
		return llmValues(r)
	}
	return nil
}

func studioValues(r *resolve.Resolved) map[string]any {
	values := map[string]any{
		"image": imageValues(r.Images[service.Studio]),
		"auth": map[string]any{
			"adminEmail":       r.AdminEmail,
			"adminPassword":    r.Secrets.AdminPassword,
			"jwtSecret":        r.Secrets.JWTSecret,
			"jwtRefreshSecret": r.Secrets.JWTRefreshSecret,
		},
		"mongodb": map[string]any{
			"host":     service.Studio.Hostname(r.Name, "mongodb"),
			"password": r.Secrets.DatabasePassword,
		},
	}

	gateways := map[string]any{}
	if r.Enabled(service.STT) {
		gateways["stt"] = fmt.Sprintf("http://%s:80", service.STT.Hostname(r.Name, "gateway"))
	}
	if r.Enabled(service.Live) {
		gateways["live"] = fmt.Sprintf("http://%s:80", service.Live.Hostname(r.Name, "api"))
	}
	if r.Enabled(service.LLM) {
		gateways["llm"] = fmt.Sprintf("http://%s:80", service.LLM.Hostname(r.Name, "gateway"))
	}
	if len(gateways) > 0 {
		values["gateways"] = gateways
	}
	return values
}

func sttValues(r *resolve.Resolved) map[string]any {
	device := "cpu"
	if r.GPUMode != "none" {
		device = "cuda"
	}
	values := map[string]any{
		"image": imageValues(r.Images[service.STT]),
		"broker": map[string]any{
			"host":     service.STT.Hostname(r.Name, "redis"),
			"port":     6379,
			"password": r.Secrets.RedisPassword,
		},
		"mongodb": map[string]any{
			"uri": fmt.Sprintf("mongodb://%s:27017", service.STT.Hostname(r.Name, "mongodb")),
		},
		"workers": map[string]any{
			"device": device,
		},
	}
	if resources := gpuValues(r); resources != nil {
		values["resources"] = resources
	}
	return values
}

func liveValues(r *resolve.Resolved) map[string]any {
	values := map[string]any{
		"image": imageValues(r.Images[service.Live]),
		"postgres": map[string]any{
			"host":     service.Live.Hostname(r.Name, "postgres"),
			"password": r.Secrets.DatabasePassword,
		},
		"broker": map[string]any{
			"url": fmt.Sprintf("tcp://%s:1883", service.Live.Hostname(r.Name, "broker")),
		},
		"session": map[string]any{
			"cryptKey": r.Secrets.SessionCryptKey,
		},
	}
	if resources := gpuValues(r); resources != nil {
		values["resources"] = resources
	}
	return values
}

func llmValues(r *resolve.Resolved) map[string]any {
	values := map[string]any{
		"image": imageValues(r.Images[service.LLM]),
		"postgres": map[string]any{
			"host":     service.LLM.Hostname(r.Name, "postgres"),
			"password": r.Secrets.DatabasePassword,
		},
		"redis": map[string]any{
			"host":     service.LLM.Hostname(r.Name, "redis"),
			"password": r.Secrets.RedisPassword,
		},
		"cors": map[string]any{
			"origin": fmt.Sprintf("%s://%s", r.Scheme, r.Domain),
		},
	}
	if resources := gpuValues(r); resources != nil {
		values["resources"] = resources
	}
	return values
}
