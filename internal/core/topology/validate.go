package topology

import (
	"fmt"
	"sort"
)

// =============================================================================
// Validation
// =============================================================================

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single problem found in a topology.
type Issue struct {
	Severity Severity
	Field    string
	Message  string
	Err      error // sentinel for error-level issues
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// Issues is the full validation report of a topology.
type Issues []Issue

// HasErrors reports whether any issue is error-level.
func (is Issues) HasErrors() bool {
	return len(is.Errors()) > 0
}

// Errors returns the error-level issues in report order.
func (is Issues) Errors() Issues {
	var out Issues
	for _, i := range is {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns the warning-level issues in report order.
func (is Issues) Warnings() Issues {
	var out Issues
	for _, i := range is {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// Validate checks a decoded topology and reports every issue it finds.
//
// Errors:
//   - servers missing or empty
//   - a server address that is not IPv4
//   - a role host that is neither a declared server nor an IPv4 address
//   - a port outside 1..65535
//
// Warnings:
//   - no zookeeper servers, no nimbus host, no supervisor hosts
//   - the same host listed twice for a role
//
// The output order is deterministic.
func Validate(t *Topology) Issues {
	var issues Issues
	errorf := func(field string, sentinel error, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel})
	}
	warnf := func(field string, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(t.Servers) == 0 {
		errorf("servers", ErrMissingKey, "'servers' key not present")
	}

	names := make([]string, 0, len(t.Servers))
	for name := range t.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !IsIPv4(t.Servers[name]) {
			errorf("servers."+name, ErrInvalidAddress, "address %q is not an IPv4 address", t.Servers[name])
		}
	}

	for _, r := range HostedRoles {
		field := roleField(r)
		seen := make(map[string]bool)
		for _, h := range t.RoleHosts(r) {
			if _, err := t.Address(h); err != nil {
				errorf(field, ErrUndeclaredServer, "host `%s` for '%s' not found in 'servers'", h, field)
			}
			if seen[h] {
				warnf(field, "host `%s` is listed more than once", h)
			}
			seen[h] = true
		}
	}

	if len(t.ZookeeperServers) == 0 {
		warnf(roleField(RoleZookeeper), "no zookeeper servers declared")
	}
	if t.NimbusHost == "" {
		warnf(roleField(RoleNimbus), "no nimbus host declared")
	}
	if len(t.SupervisorHosts) == 0 {
		warnf(roleField(RoleSupervisor), "no supervisor hosts declared")
	}

	keys := make([]string, 0, len(t.Ports))
	for key := range t.Ports {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	for _, key := range keys {
		field := string(key)
		if spec, ok := LookupPortSpec(PortKey(key)); ok {
			field = spec.Section + "." + key
		}
		for _, p := range t.Ports[PortKey(key)] {
			if p < 1 || p > 65535 {
				errorf(field, ErrInvalidPort, "port %d is out of range", p)
			}
		}
	}

	return issues
}
