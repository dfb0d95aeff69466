package cmd

import "github.com/spf13/cobra"

// Exit codes of the goplay binary.
const (
	ExitSuccess = 0

	// ExitFailure means lessons ran but a check failed.
	ExitFailure = 1

	// ExitUsage means bad flags or arguments, an invalid config, or a lesson
	// that does not parse.
	ExitUsage = 2
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// usageArgs turns cobra argument validation errors into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
