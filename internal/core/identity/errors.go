package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/storm-docker/internal/core/topology"
)

// ErrIdentityMismatch is returned when none of the local addresses match
// the topology entries a caller needs.
var ErrIdentityMismatch = errors.New("local addresses do not match the topology")

// MismatchError carries the context of an identity mismatch.
// Role is empty when no role at all is co-located with this machine.
type MismatchError struct {
	Role     topology.Role
	Local    []string
	Declared []string
}

func (e *MismatchError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("none of the local addresses [%s] match any host declared in the topology [%s]",
			strings.Join(e.Local, ", "), strings.Join(e.Declared, ", "))
	}
	return fmt.Sprintf("none of the local addresses [%s] match the %s hosts [%s]",
		strings.Join(e.Local, ", "), e.Role, strings.Join(e.Declared, ", "))
}

func (e *MismatchError) Unwrap() error {
	return ErrIdentityMismatch
}
