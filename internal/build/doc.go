// Package build provides the canonical build execution pipeline for incscript.
//
// A build loads the source root, then walks the content tree depth-first:
// every directory computes its preferences through the cascade, rebuilds its
// destination directory from scratch and compiles each child file. All
// execution paths (build command, watch mode, tests) route through
// BuildService.
//
// Per-file failures never stop a run; they are collected in the Report and
// turn the status into BuildStatusPartial. Fatal failures (missing layout,
// unwritable destination, cancellation) stop the run.
package build
