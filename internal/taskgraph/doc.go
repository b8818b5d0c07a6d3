// Package taskgraph registers named build tasks and runs them. A task is either a
// pipeline (source patterns, ordered transform steps, destination) or a composite that
// runs other tasks in listed order. Runs are strictly sequential: dependencies finish
// before the dependent continues, and the first failing step aborts the whole run.
package taskgraph
