package cmd

// Exit codes for the testrig CLI
const (
	// ExitSuccess indicates the command completed normally
	ExitSuccess = 0

	// ExitFailure indicates a command error (bad arguments, missing run,
	// database failure, schema validation failure)
	ExitFailure = 1

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
