package connector

import (
	"bytes"
	"io"
	"strings"
	"time"
)

type ExecOptions struct {
	Sudo       bool
	Timeout    time.Duration
	Env        []string
	Retries    int
	RetryDelay time.Duration
	Stream     io.Writer
	// Stdin is fed to the command on every attempt. Under sudo with a
	// password it follows the password line.
	Stdin []byte
}

// commandStdin assembles what a command reads on standard input: the sudo
// password when sudo will prompt for it, then opts.Stdin. Nil when empty.
func commandStdin(opts ExecOptions, sudoPassword string) io.Reader {
	var readers []io.Reader
	if opts.Sudo && sudoPassword != "" {
		readers = append(readers, strings.NewReader(sudoPassword+"\n"))
	}
	if len(opts.Stdin) > 0 {
		readers = append(readers, bytes.NewReader(opts.Stdin))
	}
	if len(readers) == 0 {
		return nil
	}
	return io.MultiReader(readers...)
}

type FileTransferOptions struct {
	Permissions string
	Owner       string
	Group       string
	Sudo        bool
}
