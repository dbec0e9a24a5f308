package connector

import "fmt"

// CommandError carries the detail of a command that exited non-zero or
// could not be run.
type CommandError struct {
	Cmd        string
	ExitCode   int
	Stdout     string
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	errMsg := fmt.Sprintf("command '%s' failed with exit code %d", e.Cmd, e.ExitCode)
	if e.Stderr != "" {
		errMsg = fmt.Sprintf("%s: %s", errMsg, e.Stderr)
	}
	if e.Underlying != nil {
		errMsg = fmt.Sprintf("%s (underlying error: %v)", errMsg, e.Underlying)
	}
	return errMsg
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// ConnectionError represents a failure to establish a connection.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to host %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
