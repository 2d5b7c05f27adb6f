// Package cli defines the lintoctl command tree: profile management,
// rendering, deployment, rolling restarts, teardown and status.
package cli
