// Package service defines the closed set of platform services, the
// dependency relation between them and the naming scheme shared by the
// renderer, the orchestrator and the status aggregator.
package service

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// ID identifies one platform service.
type ID string

const (
	// Studio is the conversation manager and web frontend. It owns the
	// ingress and the TLS certificate, so it is always applied first.
	Studio ID = "studio"
	// STT is the speech-to-text stack.
	STT ID = "stt"
	// Live is the live session stack.
	Live ID = "live"
	// LLM is the LLM gateway stack.
	LLM ID = "llm"
)

// dependencies maps a service to the services whose apply call must have
// been issued before its own.
var dependencies = map[ID][]ID{
	Studio: nil,
	STT:    {Studio},
	Live:   {Studio},
	LLM:    {Studio},
}

var titler = cases.Title(language.English)

// All returns every known service in deterministic order.
func All() []ID {
	return []ID{Studio, STT, Live, LLM}
}

// Parse converts a user-supplied value into an ID. Both short names
// ("stt") and chart names ("linto-stt") are accepted.
func Parse(value string) (ID, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	name = strings.TrimPrefix(name, "linto-")
	for _, id := range All() {
		if string(id) == name {
			return id, nil
		}
	}
	return "", errors.Newf(errors.ErrCodeNotFound, "unknown service %q", value)
}

// DependsOn returns the services this one depends on.
func (id ID) DependsOn() []ID {
	return slices.Clone(dependencies[id])
}

// Chart returns the chart name for this service.
func (id ID) Chart() string {
	return "linto-" + string(id)
}

// ReleaseName returns the helm release name for this service under the
// given profile.
func (id ID) ReleaseName(profile string) string {
	return profile + "-" + string(id)
}

// Hostname derives an in-cluster hostname for one role of this service,
// matching the names the charts give their workloads.
func (id ID) Hostname(profile, role string) string {
	return profile + "-" + string(id) + "-" + role
}

// GPUCapable reports whether the service schedules GPU workloads.
func (id ID) GPUCapable() bool {
	return id == STT || id == Live || id == LLM
}

// DisplayName returns the human-facing name used in status tables.
func (id ID) DisplayName() string {
	switch id {
	case STT, LLM:
		return strings.ToUpper(string(id))
	default:
		return titler.String(string(id))
	}
}

// Order sorts the given services so every service appears after its
// dependencies. Ties keep the All() order, so the result is stable.
func Order(ids []ID) []ID {
	present := map[ID]bool{}
	for _, id := range ids {
		present[id] = true
	}

	ordered := make([]ID, 0, len(ids))
	placed := map[ID]bool{}
	for len(ordered) < len(present) {
		progressed := false
		for _, id := range All() {
			if !present[id] || placed[id] {
				continue
			}
			ready := true
			for _, dep := range dependencies[id] {
				if present[dep] && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, id)
				placed[id] = true
				progressed = true
			}
		}
		if !progressed {
			// The static dependency set is acyclic, so this is unreachable.
			break
		}
	}
	return ordered
}

// ReverseOrder returns Order reversed, the teardown order.
func ReverseOrder(ids []ID) []ID {
	ordered := Order(ids)
	slices.Reverse(ordered)
	return ordered
}
