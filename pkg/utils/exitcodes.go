package utils

const (
	// standard exit codes
	ExitCodeSuccess = iota
	ExitCodeError   = 1

	// custom exit codes
	ExitCodeConfig      = 100
	ExitCodeEventSource = 101
)
