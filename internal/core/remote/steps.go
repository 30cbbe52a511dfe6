// Package remote decides which components start on which hosts when a
// cluster is launched from a single machine.
package remote

import (
	"fmt"

	"github.com/artpar/storm-docker/internal/core/launch"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// Selection picks the component groups to launch.
type Selection struct {
	Zookeeper  bool
	Nimbus     bool
	UI         bool
	Supervisor bool
}

// All selects every component group.
func All() Selection {
	return Selection{Zookeeper: true, Nimbus: true, UI: true, Supervisor: true}
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return !s.Zookeeper && !s.Nimbus && !s.UI && !s.Supervisor
}

// Step runs one component on one host.
type Step struct {
	Host      string // server name or address as written in the topology
	Address   string
	Component string
}

// NeedsAmbassador reports whether nimbus runs on a machine without a
// zookeeper server, in which case the nimbus machine gets a zk_ambassador.
func NeedsAmbassador(t *topology.Topology) (bool, error) {
	if t.NimbusHost == "" {
		return false, nil
	}
	nimbus, err := t.Address(t.NimbusHost)
	if err != nil {
		return false, err
	}
	zk, err := t.RoleAddresses(topology.RoleZookeeper)
	if err != nil {
		return false, err
	}
	for _, addr := range zk {
		if addr == nimbus {
			return false, nil
		}
	}
	return true, nil
}

// Plan returns the launch steps for a selection, zookeeper first, then
// nimbus, ui and supervisors.
func Plan(t *topology.Topology, sel Selection) ([]Step, error) {
	if t == nil {
		return nil, topology.NewConfigError("", "topology is required", topology.ErrMissingKey)
	}
	ambassador := false
	if sel.Zookeeper || sel.Nimbus || sel.UI {
		var err error
		if ambassador, err = NeedsAmbassador(t); err != nil {
			return nil, err
		}
	}

	var steps []Step
	add := func(hosts []string, component string) error {
		for _, h := range hosts {
			addr, err := t.Address(h)
			if err != nil {
				return err
			}
			steps = append(steps, Step{Host: h, Address: addr, Component: component})
		}
		return nil
	}

	if sel.Zookeeper {
		zk := t.RoleHosts(topology.RoleZookeeper)
		if ambassador && len(zk) > 0 {
			if err := add(zk[:1], launch.ComboZookeeperWithAmbassador); err != nil {
				return nil, err
			}
			zk = zk[1:]
		}
		if err := add(zk, string(launch.ComponentZookeeper)); err != nil {
			return nil, err
		}
	}
	if sel.Nimbus {
		component := string(launch.ComponentNimbus)
		if ambassador {
			component = launch.ComboNimbusWithAmbassador
		}
		if err := add(t.RoleHosts(topology.RoleNimbus), component); err != nil {
			return nil, err
		}
	}
	if sel.UI {
		component := string(launch.ComponentUI)
		if ambassador {
			component = launch.ComboUIOnAmbassadorMachine
		}
		if err := add(t.RoleHosts(topology.RoleUI), component); err != nil {
			return nil, err
		}
	}
	if sel.Supervisor {
		if err := add(t.RoleHosts(topology.RoleSupervisor), string(launch.ComponentSupervisor)); err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// Commands returns the shell commands a step runs on its host. The destroy
// command may fail when nothing is running; callers ignore its failure.
func Commands(workdir, binary string, s Step) (destroy, run string) {
	if binary == "" {
		binary = "storm-docker"
	}
	prefix := ""
	if workdir != "" {
		prefix = fmt.Sprintf("cd %s && ", workdir)
	}
	return fmt.Sprintf("%s%s destroy %s", prefix, binary, s.Component),
		fmt.Sprintf("%s%s run %s", prefix, binary, s.Component)
}
