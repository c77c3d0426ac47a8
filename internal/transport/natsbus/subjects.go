// Package natsbus carries coordinator/worker messages over core NATS.
//
// Each job uses two subject families below a configurable prefix:
//
//	<prefix>.<job>.coordinator      every worker publishes here
//	<prefix>.<job>.worker.<id>      the coordinator replies to worker <id>
//
// NATS keeps the publish order of one connection, which gives the per-worker
// ordering the protocol needs. Frames are encoded with internal/wire.
package natsbus

import "strings"

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "fractals"

// CoordinatorSubject returns the subject the coordinator of job listens on.
func CoordinatorSubject(prefix, job string) string {
	return join(prefix, job, "coordinator")
}

// WorkerSubject returns the subject worker id of job listens on.
func WorkerSubject(prefix, job, id string) string {
	return join(prefix, job, "worker", id)
}

func join(prefix string, parts ...string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return prefix + "." + strings.Join(parts, ".")
}
