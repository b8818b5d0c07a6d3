// Package fileset enumerates source files matched by glob patterns and writes
// transformed files to a destination directory. Every operation goes through an
// afero.Fs so callers can run against the OS, a rooted base path or memory.
package fileset
