package launch

import (
	"fmt"
	"strings"

	"github.com/artpar/storm-docker/internal/core/planner"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// Component is something the launcher can run: a container.
type Component string

const (
	ComponentZookeeper  Component = "zookeeper"
	ComponentNimbus     Component = "nimbus"
	ComponentSupervisor Component = "supervisor"
	ComponentUI         Component = "ui"
	ComponentDRPC       Component = "drpc"
	ComponentAmbassador Component = "ambassador"
)

// Combined component names used by remote launches.
const (
	ComboZookeeperWithAmbassador = "zookeeper-with-ambassador"
	ComboNimbusWithAmbassador    = "nimbus-with-zookeeper-ambassador"
	ComboUIOnAmbassadorMachine   = "ui-on-zk-ambassador-machine"
)

// AllComponents lists the plain components in start order.
var AllComponents = []Component{
	ComponentZookeeper,
	ComponentAmbassador,
	ComponentNimbus,
	ComponentSupervisor,
	ComponentUI,
	ComponentDRPC,
}

var combos = map[string][]Component{
	// The ensemble's published ports already make zookeeper reachable, so
	// the zookeeper side needs no ambassador of its own.
	ComboZookeeperWithAmbassador: {ComponentZookeeper},
	ComboNimbusWithAmbassador:    {ComponentAmbassador, ComponentNimbus},
	ComboUIOnAmbassadorMachine:   {ComponentUI},
}

// ContainerName returns the fixed container name of a component.
func (c Component) ContainerName() string {
	if c == ComponentAmbassador {
		return planner.ContainerZKAmbassador
	}
	return string(c)
}

// Role returns the Storm role a component runs. ok is false for the
// ambassador, which runs no role.
func (c Component) Role() (topology.Role, bool) {
	switch c {
	case ComponentZookeeper:
		return topology.RoleZookeeper, true
	case ComponentNimbus:
		return topology.RoleNimbus, true
	case ComponentSupervisor:
		return topology.RoleSupervisor, true
	case ComponentUI:
		return topology.RoleUI, true
	case ComponentDRPC:
		return topology.RoleDRPC, true
	default:
		return "", false
	}
}

// EntrypointCommand returns the storm-entrypoint subcommand the component's
// container runs. ok is false for the ambassador, whose image has its own
// entrypoint.
func (c Component) EntrypointCommand() (string, bool) {
	switch c {
	case ComponentAmbassador:
		return "", false
	case ComponentZookeeper:
		return EntrypointZookeeper, true
	default:
		return EntrypointStorm, true
	}
}

// planRoles returns the role names whose ports a component publishes.
func (c Component) planRoles() []string {
	if c == ComponentSupervisor {
		return []string{string(topology.RoleSupervisor), string(topology.RoleLogviewer)}
	}
	if r, ok := c.Role(); ok {
		return []string{string(r)}
	}
	return nil
}

// ParseComponent parses a plain component name.
func ParseComponent(name string) (Component, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "zk" {
		n = string(ComponentZookeeper)
	}
	for _, c := range AllComponents {
		if string(c) == n {
			return c, nil
		}
	}
	return "", topology.NewConfigError("component", fmt.Sprintf("unknown component %q", name), topology.ErrUnknownRole)
}

// ExpandComponents parses component names, expanding combined names, and
// returns them in start order without duplicates.
func ExpandComponents(names []string) ([]Component, error) {
	want := make(map[Component]bool)
	for _, name := range names {
		if expanded, ok := combos[strings.ToLower(strings.TrimSpace(name))]; ok {
			for _, c := range expanded {
				want[c] = true
			}
			continue
		}
		c, err := ParseComponent(name)
		if err != nil {
			return nil, err
		}
		want[c] = true
	}
	out := make([]Component, 0, len(want))
	for _, c := range AllComponents {
		if want[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// DefaultImages returns the image used for each component.
func DefaultImages() map[Component]string {
	return map[Component]string{
		ComponentZookeeper:  "storm-docker/zookeeper",
		ComponentNimbus:     "storm-docker/storm-nimbus",
		ComponentSupervisor: "storm-docker/storm-supervisor",
		ComponentUI:         "storm-docker/storm-ui",
		ComponentDRPC:       "storm-docker/storm-drpc",
		ComponentAmbassador: "svendowideit/ambassador",
	}
}
