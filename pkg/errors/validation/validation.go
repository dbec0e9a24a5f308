// Package validation collects field-level findings so that a configuration
// can report every problem at once instead of stopping at the first.
package validation

import (
	"fmt"
	"strings"
)

type ValidationErrors struct {
	errors []string
}

func (v *ValidationErrors) Add(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *ValidationErrors) AddError(path, message string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", path, message))
}

func (v *ValidationErrors) Error() string {
	if len(v.errors) == 0 {
		return ""
	}
	return strings.Join(v.errors, "\n")
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *ValidationErrors) Count() int {
	return len(v.errors)
}

// GetErrors returns all validation findings.
func (v *ValidationErrors) GetErrors() []string {
	return v.errors
}

// OrNil returns v as an error when it holds findings, nil otherwise.
func (v *ValidationErrors) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
