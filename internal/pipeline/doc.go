// Package pipeline assembles the descriptor a bundler executes for one build:
// the output settings plus an ordered list of source-transform stages.
//
// Stage order is fixed. Conditional stages are appended only when enabled,
// never as placeholders, so the relative order of present stages is always:
//
//	extract-errors, node-resolve, commonjs, json, shebang, typescript,
//	babel, replace, sourcemaps, terser
//
// Error extraction sees untouched source first; the shebang is gone before the
// typescript and babel stages parse anything; minification runs last over the
// merged source maps.
package pipeline
