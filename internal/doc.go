// Package internal contains the core implementation packages for assetpipe.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the assetpipe CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - assets: File groups, asset kinds and the per-process environment
//   - bundle: Concatenation and minification of one group into one file
//   - isolate: Executors that run a bundle job off the caller's stack
//   - minify: Minifier backends for JavaScript and CSS
//   - manifest: YAML declaration of groups and named asset groups
//   - config: Configuration management with validation
//   - errors: Error taxonomy and build failure aggregation
//   - logging: Structured logging on log/slog
//   - watcher: File system monitoring with debouncing and rebuilds
//   - web: chi middleware that derives the render scope of a request
//   - version: Build metadata
//
// # Inter-Package Communication
//
// The environment is the hub:
//
//   - Manifest entries are served into an environment
//   - Building a group hands a bundle job to an isolate executor
//   - Watcher events map to asset types and rebuild them
//   - Web middleware stores the scope the environment renders for
//
// # Testing Strategy
//
// Each package carries unit tests with testify. Property tests built on
// gopter sit behind the property build tag; rapid drives the remaining
// invariant checks.
package internal
