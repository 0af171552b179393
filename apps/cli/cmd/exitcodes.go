package cmd

// Exit codes for hitdesk CLI
const (
	// ExitSuccess indicates the command completed
	ExitSuccess = 0

	// ExitFailure indicates a generic failure
	ExitFailure = 1

	// ExitParseError indicates a template that failed to parse or validate
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates the request produced no response
	ExitNetworkError = 4

	// ExitAuthError indicates a command that needs a signed-in user ran without one
	ExitAuthError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
