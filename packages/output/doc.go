// Package output provides formatters for displaying recorded test results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output (runs, step trees, metrics)
//   - JSON: Machine-readable run export, validated against a JSON schema
//   - JUnit: JUnit XML format for CI integration
package output
