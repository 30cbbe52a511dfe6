// Package launch composes the containers that run Storm roles on this
// machine.
//
// This package contains pure functions. Given a topology, the identity
// resolution of this machine and launcher settings, it builds one
// ContainerPlan per requested component. A plan renders either as a
// `docker run` argument list, as a compose project, or is handed to the
// Docker shell for execution.
package launch

import (
	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/planner"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// =============================================================================
// Container Plan Types
// =============================================================================

// ContainerPlan is a planned container, ready for the shell to execute.
type ContainerPlan struct {
	Component Component
	Name      string
	Image     string
	Hostname  string
	Detach    bool
	DNS       []string
	Ports     []planner.PortMapping
	Exposed   []int
	Links     []planner.Link
	Env       map[string]string
	Labels    map[string]string

	// DockerArgs are extra `docker run` options placed before the image.
	DockerArgs []string

	// Args are passed to the image entrypoint.
	Args []string
}

// =============================================================================
// Builder Parameter Types
// =============================================================================

// Params contains all inputs for building container plans.
type Params struct {
	Topology   *topology.Topology
	Resolution *identity.Resolution

	// Images maps components to image references. Missing entries fall back
	// to DefaultImages.
	Images map[Component]string

	// DNS servers given to every Storm container.
	DNS []string

	// AmbassadorRunning is true when a zk_ambassador container already runs
	// on this machine.
	AmbassadorRunning bool

	// DockerArgs are appended to every plan's DockerArgs.
	DockerArgs []string
}

// DefaultDNS is the resolver list of Storm containers: the in-container
// dnsmasq first, then public resolvers.
var DefaultDNS = []string{"127.0.0.1", "8.8.8.8", "8.8.4.4"}

// =============================================================================
// Container Labels
// =============================================================================

// Label keys used to identify containers started by storm-docker.
const (
	LabelManaged   = "io.storm-docker.managed"
	LabelComponent = "io.storm-docker.component"
	LabelLaunch    = "io.storm-docker.launch"
)

// Subcommands of storm-entrypoint. A planned container command starts with
// one of them; the image's ENTRYPOINT is the storm-entrypoint binary.
const (
	EntrypointStorm     = "storm"
	EntrypointZookeeper = "zookeeper"
)

// Entrypoint flags understood by storm-entrypoint.
const (
	FlagMyIPAddress       = "--my-ip-address"
	FlagSupervisorHost    = "--storm-supervisor-host"
	FlagIsStormSupervisor = "--is-storm-supervisor"
)
