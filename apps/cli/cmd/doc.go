// Package cmd implements the testrig CLI commands using Cobra.
//
// Available commands:
//   - init: Create a config file and an empty results database
//   - runs: List recorded test runs
//   - show: Show a run's executions and summary
//   - steps: Show an execution's hierarchical step tree
//   - metrics: Show an execution's custom metrics, with gjson path queries
//   - tail: Follow steps live as a test suite writes them
//   - export: Export a run as JSON (schema-validated) or JUnit XML
//   - version: Show testrig version information
package cmd
