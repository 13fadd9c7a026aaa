package core

// Exit codes for the CLI.
// Signal exits follow the Unix 128 + signal number convention.
const (
	// ExitCodeSuccess means every input produced text
	ExitCodeSuccess = 0

	// ExitCodeError covers configuration and I/O errors
	ExitCodeError = 1

	// ExitCodeExtractionFailed means at least one input yielded no usable text
	ExitCodeExtractionFailed = 2

	// ExitCodeUnsupportedType means at least one input had an unsupported type
	ExitCodeUnsupportedType = 3

	// ExitCodeSIGINT is 128 + 2
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM is 128 + 15
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeExtractionFailed:
		return "extraction failed"
	case ExitCodeUnsupportedType:
		return "unsupported type"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// IsSignalExit returns true if the exit code indicates a signal-based termination.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}

// WorseExitCode picks the code to report when several inputs finished
// differently. Errors outrank unsupported types, which outrank failed
// extractions.
func WorseExitCode(a, b int) int {
	rank := func(c int) int {
		switch c {
		case ExitCodeSuccess:
			return 0
		case ExitCodeExtractionFailed:
			return 1
		case ExitCodeUnsupportedType:
			return 2
		default:
			return 3
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
