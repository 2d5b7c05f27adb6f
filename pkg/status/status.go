// Package status aggregates the live state of a deployed profile: pod
// health per service, restart counts, resource usage when a metrics
// server is present, and the public URL.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/linto-ai/lintoctl/pkg/profile"
	"github.com/linto-ai/lintoctl/pkg/service"
)

const instanceLabel = "app.kubernetes.io/instance"

// PodLister is the cluster read surface the aggregator needs.
type PodLister interface {
	ListPods(ctx context.Context, namespace, selector string) ([]corev1.Pod, error)
}

// ServiceStatus is the aggregated state of one service.
type ServiceStatus struct {
	Service  service.ID `json:"service" yaml:"service"`
	Health   Health     `json:"health" yaml:"health"`
	Reason   string     `json:"reason,omitempty" yaml:"reason,omitempty"`
	Ready    int        `json:"ready" yaml:"ready"`
	Total    int        `json:"total" yaml:"total"`
	Restarts int        `json:"restarts" yaml:"restarts"`
	CPU      string     `json:"cpu,omitempty" yaml:"cpu,omitempty"`
	Memory   string     `json:"memory,omitempty" yaml:"memory,omitempty"`
	// GPUCount is the number of GPUs the service's pods hold, summed
	// from their container limits.
	GPUCount int    `json:"gpuCount" yaml:"gpuCount"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Report is the full status of one profile at one point in time.
type Report struct {
	Profile     string          `json:"profile" yaml:"profile"`
	Namespace   string          `json:"namespace" yaml:"namespace"`
	Domain      string          `json:"domain" yaml:"domain"`
	GeneratedAt time.Time       `json:"generatedAt" yaml:"generatedAt"`
	Services    []ServiceStatus `json:"services" yaml:"services"`

	// Compact trims the table output to service and health columns.
	Compact bool `json:"-" yaml:"-"`
}

// Headers implements serializer.Tabler.
func (r *Report) Headers() []string {
	if r.Compact {
		return []string{"SERVICE", "HEALTH", "READY"}
	}
	return []string{"SERVICE", "HEALTH", "READY", "RESTARTS", "CPU", "MEMORY", "GPU", "URL"}
}

// Rows implements serializer.Tabler.
func (r *Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Services))
	for _, s := range r.Services {
		health := string(s.Health)
		if s.Reason != "" {
			health = fmt.Sprintf("%s (%s)", s.Health, s.Reason)
		}
		ready := fmt.Sprintf("%d/%d", s.Ready, s.Total)
		if r.Compact {
			rows = append(rows, []string{s.Service.DisplayName(), health, ready})
			continue
		}
		rows = append(rows, []string{
			s.Service.DisplayName(), health, ready,
			strconv.Itoa(s.Restarts), s.CPU, s.Memory, strconv.Itoa(s.GPUCount), s.URL,
		})
	}
	return rows
}

// Aggregator queries one cluster for profile status.
type Aggregator struct {
	pods PodLister
	// metrics is optional; status degrades to "-" columns without it.
	metrics metricsclient.Interface
}

// NewAggregator returns an Aggregator. metrics may be nil when the
// cluster has no metrics server.
func NewAggregator(pods PodLister, metrics metricsclient.Interface) *Aggregator {
	return &Aggregator{pods: pods, metrics: metrics}
}

// Aggregate collects the current status of every enabled service.
func (a *Aggregator) Aggregate(ctx context.Context, p *profile.Profile) (*Report, error) {
	report := &Report{
		Profile:     p.Name,
		Namespace:   p.Namespace,
		Domain:      p.Domain,
		GeneratedAt: time.Now().UTC(),
	}

	usage := a.collectUsage(ctx, p.Namespace)

	for _, id := range service.Order(p.Services.Enabled()) {
		release := id.ReleaseName(p.Name)
		pods, err := a.pods.ListPods(ctx, p.Namespace, instanceLabel+"="+release)
		if err != nil {
			return nil, err
		}

		health, reason := classify(pods)
		ready, total := readyCounts(pods)

		st := ServiceStatus{
			Service:  id,
			Health:   health,
			Reason:   reason,
			Ready:    ready,
			Total:    total,
			Restarts: totalRestarts(pods),
			CPU:      "-",
			Memory:   "-",
			GPUCount: gpuCount(pods),
			URL:      serviceURL(p, id),
		}
		if cpu, mem, ok := sumUsage(usage, pods); ok {
			st.CPU = cpu
			st.Memory = mem
		}
		report.Services = append(report.Services, st)
	}
	return report, nil
}

// gpuResource is the device-plugin resource name the charts request.
const gpuResource = corev1.ResourceName("nvidia.com/gpu")

// gpuCount sums the GPU limits held by the service's containers.
func gpuCount(pods []corev1.Pod) int {
	count := 0
	for _, pod := range pods {
		for _, c := range pod.Spec.Containers {
			if q, ok := c.Resources.Limits[gpuResource]; ok {
				count += int(q.Value())
			}
		}
	}
	return count
}

// serviceURL returns the public URL of a service. Only studio (the
// ingress root) and the llm gateway are exposed on the domain; stt and
// live are fronted by the studio API gateway and have no address of
// their own.
func serviceURL(p *profile.Profile, id service.ID) string {
	switch id {
	case service.Studio:
		return fmt.Sprintf("%s://%s", p.URLScheme(), p.Domain)
	case service.LLM:
		return fmt.Sprintf("%s://%s/llm-gateway", p.URLScheme(), p.Domain)
	default:
		return "-"
	}
}

// collectUsage returns per-pod resource usage, or nil when the metrics
// API is absent or failing. Missing metrics never fail a status call.
func (a *Aggregator) collectUsage(ctx context.Context, namespace string) map[string][2]resource.Quantity {
	if a.metrics == nil {
		return nil
	}
	list, err := a.metrics.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		slog.Debug("pod metrics unavailable", "namespace", namespace, "error", err)
		return nil
	}

	usage := map[string][2]resource.Quantity{}
	for _, pm := range list.Items {
		cpu := resource.Quantity{}
		mem := resource.Quantity{}
		for _, c := range pm.Containers {
			cpu.Add(*c.Usage.Cpu())
			mem.Add(*c.Usage.Memory())
		}
		usage[pm.Name] = [2]resource.Quantity{cpu, mem}
	}
	return usage
}

func sumUsage(usage map[string][2]resource.Quantity, pods []corev1.Pod) (string, string, bool) {
	if usage == nil {
		return "", "", false
	}
	cpu := resource.Quantity{}
	mem := resource.Quantity{}
	found := false
	for _, pod := range pods {
		if u, ok := usage[pod.Name]; ok {
			cpu.Add(u[0])
			mem.Add(u[1])
			found = true
		}
	}
	if !found {
		return "", "", false
	}
	return fmt.Sprintf("%dm", cpu.MilliValue()), fmt.Sprintf("%dMi", mem.Value()/(1024*1024)), true
}

// Follow polls Aggregate at the given interval and hands each report, or
// the poll error, to fn. Poll errors do not stop the loop; cancelling
// the context does.
func (a *Aggregator) Follow(ctx context.Context, p *profile.Profile, interval time.Duration, fn func(*Report, error)) error {
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			// Cancellation ends the watch cleanly.
			return nil
		}
		report, err := a.Aggregate(ctx, p)
		if ctx.Err() != nil {
			return nil
		}
		fn(report, err)
	}
}
