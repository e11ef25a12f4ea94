// Package stepresult defines the failure shape returned to the workflow orchestrator.
//
// The orchestrator branches purely on response shape: a body carrying an
// "error" field is a failure transition, anything else is success.
package stepresult

import (
	"fmt"

	dErrors "kbv/pkg/domain-errors"
)

// Failure is the structured result returned in place of a raised error.
type Failure struct {
	Error string `json:"error"`
}

// FromError normalizes err into "<component> : <message>".
func FromError(component string, err error) Failure {
	if err == nil {
		return Failure{Error: component + " : unknown error"}
	}
	msg := err.Error()
	if de, ok := dErrors.Is(err); ok && de.Code == dErrors.CodeInternal {
		// internal causes may carry driver detail; keep the outward message stable
		msg = de.Message
	}
	return Failure{Error: fmt.Sprintf("%s : %s", component, msg)}
}
