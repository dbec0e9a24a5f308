package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrors(t *testing.T) {
	v := &ValidationErrors{}
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.OrNil())

	v.AddError("spec.master", "must be set")
	v.Add("version %q is not semantic", "latest")

	assert.True(t, v.HasErrors())
	assert.Equal(t, 2, v.Count())
	assert.Equal(t, "spec.master: must be set\nversion \"latest\" is not semantic", v.Error())
	assert.Error(t, v.OrNil())
}
