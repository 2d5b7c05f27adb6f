package status

import (
	corev1 "k8s.io/api/core/v1"
)

// Health is the aggregated state of one service.
type Health string

const (
	// HealthRunning means every pod is ready.
	HealthRunning Health = "Running"
	// HealthPending means pods exist but are still converging.
	HealthPending Health = "Pending"
	// HealthError means at least one pod is failing.
	HealthError Health = "Error"
	// HealthUnknown means no pods were observed. This is distinct from
	// Error: a service that was never scheduled is not failing.
	HealthUnknown Health = "Unknown"
)

// restartThreshold is the restart count past which a pod is considered
// crash-looping even without an explicit waiting reason.
const restartThreshold = 5

var errorWaitingReasons = map[string]bool{
	"CrashLoopBackOff":     true,
	"ImagePullBackOff":     true,
	"ErrImagePull":         true,
	"CreateContainerError": true,
}

// classify derives the service health from its pods.
func classify(pods []corev1.Pod) (Health, string) {
	if len(pods) == 0 {
		return HealthUnknown, "no pods observed"
	}

	allReady := true
	var pendingReason string
	for _, pod := range pods {
		if pod.DeletionTimestamp != nil {
			allReady = false
			pendingReason = "Terminating"
			continue
		}
		if pod.Status.Phase == corev1.PodFailed {
			return HealthError, "pod failed"
		}

		podReady := pod.Status.Phase == corev1.PodRunning
		for _, cs := range pod.Status.ContainerStatuses {
			if waiting := cs.State.Waiting; waiting != nil && errorWaitingReasons[waiting.Reason] {
				return HealthError, waiting.Reason
			}
			if terminated := cs.LastTerminationState.Terminated; terminated != nil &&
				terminated.ExitCode != 0 && cs.RestartCount > restartThreshold {
				return HealthError, "CrashLoopBackOff"
			}
			if !cs.Ready {
				podReady = false
				if waiting := cs.State.Waiting; waiting != nil && pendingReason == "" {
					pendingReason = waiting.Reason
				}
			}
		}
		if !podReady {
			allReady = false
			if pendingReason == "" {
				pendingReason = string(pod.Status.Phase)
			}
		}
	}

	if allReady {
		return HealthRunning, ""
	}
	return HealthPending, pendingReason
}

// readyCounts returns how many pods are fully ready out of the total.
func readyCounts(pods []corev1.Pod) (ready, total int) {
	total = len(pods)
	for _, pod := range pods {
		if pod.DeletionTimestamp != nil || pod.Status.Phase != corev1.PodRunning {
			continue
		}
		podReady := true
		for _, cs := range pod.Status.ContainerStatuses {
			if !cs.Ready {
				podReady = false
				break
			}
		}
		if podReady {
			ready++
		}
	}
	return ready, total
}

func totalRestarts(pods []corev1.Pod) int {
	restarts := 0
	for _, pod := range pods {
		for _, cs := range pod.Status.ContainerStatuses {
			restarts += int(cs.RestartCount)
		}
	}
	return restarts
}
