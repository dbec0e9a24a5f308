// Package operation holds the named remote operations an install run
// invokes. Each operation is a shell command template rendered with sprig
// functions; the executor runs the rendered command on every targeted host.
package operation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mensylisir/pexm/pkg/util"
)

// Params are the template inputs of one invocation.
type Params map[string]interface{}

// Definition describes how to build and judge one named operation.
type Definition struct {
	Name     string
	Template string
	// Stdin, when set, is rendered with the same params and fed to the
	// command's standard input. Secrets belong here rather than in Template.
	Stdin string
	Sudo  bool
	// AcceptExitCodes lists non-zero exit codes that still count as success.
	AcceptExitCodes []int
	// Parse turns raw stdout into the operation's output value. Nil keeps
	// the trimmed stdout.
	Parse func(stdout []byte) (string, error)
}

// Command is a rendered operation ready to run.
type Command struct {
	Operation       string
	Cmd             string
	Stdin           []byte
	Sudo            bool
	AcceptExitCodes []int
	Parse           func(stdout []byte) (string, error)
}

// Accepts reports whether a non-zero exit code counts as success.
func (c *Command) Accepts(exitCode int) bool {
	for _, code := range c.AcceptExitCodes {
		if code == exitCode {
			return true
		}
	}
	return false
}

// Output applies the operation's parser to stdout.
func (c *Command) Output(stdout []byte) (string, error) {
	if c.Parse == nil {
		return strings.TrimSpace(string(stdout)), nil
	}
	return c.Parse(stdout)
}

// Registry maps operation names to definitions.
type Registry struct {
	defs map[string]Definition
}

func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a definition.
func (r *Registry) Register(d Definition) {
	r.defs[d.Name] = d
}

// Names lists registered operations in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render builds the command for name with params.
func (r *Registry) Render(name string, params Params) (*Command, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", name)
	}
	if params == nil {
		params = Params{}
	}
	cmd, err := util.RenderTemplate(d.Template, params)
	if err != nil {
		return nil, fmt.Errorf("failed to render operation %q: %w", name, err)
	}
	var stdin []byte
	if d.Stdin != "" {
		in, err := util.RenderTemplate(d.Stdin, params)
		if err != nil {
			return nil, fmt.Errorf("failed to render stdin of operation %q: %w", name, err)
		}
		stdin = []byte(in)
	}
	return &Command{
		Operation:       d.Name,
		Cmd:             strings.TrimSpace(cmd),
		Stdin:           stdin,
		Sudo:            d.Sudo,
		AcceptExitCodes: d.AcceptExitCodes,
		Parse:           d.Parse,
	}, nil
}
