package processregistry

import (
	"fmt"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// ProcessNotFoundError is an inconsistent reference: something named a
// process the registry no longer (or never) held.
type ProcessNotFoundError struct {
	OID sysflow.OID
}

func (e *ProcessNotFoundError) Error() string {
	return fmt.Sprintf("process %s not found in registry", e.OID)
}

// AncestryCycleError stops an ancestor walk that revisited a process or ran
// past the depth bound.
type AncestryCycleError struct {
	OID   sysflow.OID
	Depth int
}

func (e *AncestryCycleError) Error() string {
	return fmt.Sprintf("ancestry walk stopped at process %s after %d ancestors", e.OID, e.Depth)
}
