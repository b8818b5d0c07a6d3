// Package taskrunner hosts the shared abstractions for executing asset tasks. It
// exposes the `Executor` interface plus helpers (`Factory`, `Resolve`) so CLI packages
// can inject Dependencies once and obtain a runner, while unit tests can swap in fakes.
// Orchestration stays in `internal/taskgraph`; this package only wires it and reports
// a one-line run summary.
package taskrunner
