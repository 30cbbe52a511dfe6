package launch

import (
	"fmt"
	"strings"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/planner"
	"github.com/artpar/storm-docker/internal/core/stormconf"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// =============================================================================
// Container Plan Building Functions
// =============================================================================

// BuildContainerPlans builds plans for components in the given order.
// An ambassador planned earlier in the list counts as running for the
// components after it.
func BuildContainerPlans(components []Component, params Params) ([]ContainerPlan, error) {
	plans := make([]ContainerPlan, 0, len(components))
	for _, c := range components {
		plan, err := BuildContainerPlan(c, params)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
		if c == ComponentAmbassador {
			params.AmbassadorRunning = true
		}
	}
	return plans, nil
}

// BuildContainerPlan builds the plan for a single component.
//
// Every Storm role must run on this machine, otherwise an
// identity.MismatchError is returned. The ambassador has no such
// requirement: it forwards to the first zookeeper server.
func BuildContainerPlan(c Component, params Params) (ContainerPlan, error) {
	if params.Topology == nil {
		return ContainerPlan{}, topology.NewConfigError("", "topology is required", topology.ErrMissingKey)
	}
	if c == ComponentAmbassador {
		return buildAmbassador(params)
	}

	role, ok := c.Role()
	if !ok {
		return ContainerPlan{}, topology.NewConfigError("component", fmt.Sprintf("unknown component %q", c), topology.ErrUnknownRole)
	}
	rr, err := params.Resolution.Require(role)
	if err != nil {
		return ContainerPlan{}, err
	}
	server, _ := rr.LocalServer()

	pp, err := planner.Build(params.Topology, params.Resolution, c.planRoles(), planner.Options{
		AmbassadorRunning: params.AmbassadorRunning,
	})
	if err != nil {
		return ContainerPlan{}, err
	}

	plan := newPlan(c, params)
	plan.Hostname = server + "-" + string(c)
	plan.Ports = pp.Ports()
	plan.Exposed = pp.Exposed()
	sub, _ := c.EntrypointCommand()
	plan.Args = append([]string{sub}, myAddressArgs(params.Resolution.Local)...)

	if c == ComponentZookeeper {
		return plan, nil
	}

	plan.DNS = dnsServers(params.DNS)
	plan.Links = pp.Links
	if c == ComponentSupervisor {
		hosts, err := stormconf.SupervisorHosts(params.Topology)
		if err != nil {
			return ContainerPlan{}, err
		}
		for _, h := range hosts {
			plan.Args = append(plan.Args, FlagSupervisorHost, h.Arg())
		}
		plan.Args = append(plan.Args, FlagIsStormSupervisor)
	}
	return plan, nil
}

// buildAmbassador plans a zk_ambassador forwarding the zookeeper ports to
// the first zookeeper server.
func buildAmbassador(params Params) (ContainerPlan, error) {
	zkServers, err := params.Topology.RoleAddresses(topology.RoleZookeeper)
	if err != nil {
		return ContainerPlan{}, err
	}
	if len(zkServers) == 0 {
		return ContainerPlan{}, topology.NewConfigError("storm.yaml.storm.zookeeper.servers", "ambassador needs a zookeeper server", topology.ErrMissingKey)
	}
	target := zkServers[0]

	plan := newPlan(ComponentAmbassador, params)
	alias := topology.RoleZookeeper.LinkAlias()
	for _, key := range topology.PortKeys(topology.RoleZookeeper) {
		spec, _ := topology.LookupPortSpec(key)
		port := params.Topology.FirstPort(key)
		plan.Exposed = append(plan.Exposed, port)
		plan.Env[ambassadorEnvKey(alias, port, planner.ProtocolTCP)] = fmt.Sprintf("tcp://%s:%d", target, port)
		if spec.NeedsUDP {
			plan.Env[ambassadorEnvKey(alias, port, planner.ProtocolUDP)] = fmt.Sprintf("udp://%s:%d", target, port)
		}
	}
	return plan, nil
}

func newPlan(c Component, params Params) ContainerPlan {
	return ContainerPlan{
		Component: c,
		Name:      c.ContainerName(),
		Image:     imageFor(c, params.Images),
		Detach:    true,
		Ports:     []planner.PortMapping{},
		Exposed:   []int{},
		Links:     []planner.Link{},
		Env:       make(map[string]string),
		Labels: map[string]string{
			LabelManaged:   "true",
			LabelComponent: string(c),
		},
		DockerArgs: append([]string(nil), params.DockerArgs...),
	}
}

func imageFor(c Component, images map[Component]string) string {
	if img, ok := images[c]; ok && img != "" {
		return img
	}
	return DefaultImages()[c]
}

func dnsServers(configured []string) []string {
	if len(configured) == 0 {
		return append([]string(nil), DefaultDNS...)
	}
	return append([]string(nil), configured...)
}

func myAddressArgs(local identity.LocalIdentity) []string {
	args := make([]string, 0, 2*len(local))
	for _, addr := range local {
		args = append(args, FlagMyIPAddress, addr)
	}
	return args
}

// ambassadorEnvKey follows the Docker link variable naming,
// e.g. ZK_PORT_2181_TCP.
func ambassadorEnvKey(alias string, port int, protocol string) string {
	return fmt.Sprintf("%s_PORT_%d_%s", strings.ToUpper(alias), port, strings.ToUpper(protocol))
}
