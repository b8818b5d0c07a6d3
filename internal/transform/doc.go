// Package transform provides the pipeline steps used by asset tasks: sourcemap
// tracking, JavaScript transpilation and minification through esbuild, concatenation,
// Sass compilation and plain copying. Every step implements taskgraph.Step and returns
// a new file stream without mutating its input.
package transform
