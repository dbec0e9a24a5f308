package pipeline

import (
	"gopkg.in/yaml.v3"

	"github.com/mensylisir/pexm/pkg/common"
)

type csrAttributes struct {
	ExtensionRequests map[string]string `yaml:"extension_requests"`
}

// csrAttributesFor renders csr_attributes.yaml carrying the role and
// availability group extensions.
func csrAttributesFor(role, cluster string) ([]byte, error) {
	return yaml.Marshal(csrAttributes{
		ExtensionRequests: map[string]string{
			common.ExtensionRoleOID:              role,
			common.ExtensionAvailabilityGroupOID: cluster,
		},
	})
}
