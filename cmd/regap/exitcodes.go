package main

// Exit codes returned by regap commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no workspace, missing credentials, no index)
	ExitDataError   = 3 // Data or collaborator error (no documents, embedding service unavailable)
)
