// Package exitcodes contains the constants representing the possible automeet
// exit error codes.
package exitcodes

// ExitCode represents a process exit code. Values should stay between 0 and
// 125 so they survive every shell.
type ExitCode uint8

// Exit codes used by automeet.
const (
	InvalidConfig      ExitCode = 100
	BrowserUnreachable ExitCode = 101
	StoreUnavailable   ExitCode = 102
	DaemonUnreachable  ExitCode = 103
	CannotStartRESTAPI ExitCode = 104
	ExternalAbort      ExitCode = 105
	GoPanic            ExitCode = 106
)
