// Package types provides core type definitions and interfaces shared by the
// fractals packages.
//
// This package contains shared types that are used across multiple packages in the
// module. By keeping these types in a separate package, we avoid import cycles
// between the root fractals package and its internal implementations.
//
// Key types:
//   - Rect: Pixel rectangle of one block task
//   - Message, Tag: Coordinator/worker protocol units
//   - CoordinatorEndpoint, WorkerEndpoint: Message channel abstraction
//   - JobState: Coordinator job lifecycle state
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
//   - Hooks: Job lifecycle callbacks
package types
