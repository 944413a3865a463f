package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Document rendered or server stopped cleanly
	ExitDataError     = 1 // Input bundle incomplete (missing report or engagement)
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitRenderError   = 3 // Browser session failed
	ExitInternalError = 4 // Template, storage or unexpected internal error
)
