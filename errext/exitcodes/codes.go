// Package exitcodes contains the constants representing possible abilinker exit error codes.
package exitcodes

// ExitCode is just a type representing a process exit code for abilinker
type ExitCode uint8

// list of exit codes used by abilinker
const (
	GenericError      ExitCode = 1
	InvalidConfig     ExitCode = 104
	ExternalAbort     ExitCode = 105
	GroundTruthFailed ExitCode = 110
	DumpReadFailed    ExitCode = 111
	LinkFailed        ExitCode = 112
	DumpWriteFailed   ExitCode = 113
	GoPanic           ExitCode = 114
)
