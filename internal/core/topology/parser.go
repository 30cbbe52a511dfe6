package topology

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Document Types
// =============================================================================

// document mirrors the storm-setup.yaml layout. Keys contain dots, so every
// field carries an explicit yaml tag.
type document struct {
	Servers         map[string]string `yaml:"servers"`
	SupervisorHosts []string          `yaml:"storm.supervisor.hosts"`
	UIHost          string            `yaml:"ui.host"`
	LocalhostSetup  bool              `yaml:"is_localhost_setup"`
	EC2             bool              `yaml:"all_machines_are_ec2_instances"`
	Hetzner         bool              `yaml:"all_machines_are_hetzner_servers"`
	StormYAML       stormSection      `yaml:"storm.yaml"`
	ZookeeperSetup  zookeeperSection  `yaml:"zookeeper.multiple.setup"`
}

type stormSection struct {
	ZookeeperServers []string `yaml:"storm.zookeeper.servers"`
	ZookeeperPort    portList `yaml:"storm.zookeeper.port"`
	NimbusHost       string   `yaml:"nimbus.host"`
	NimbusThriftPort portList `yaml:"nimbus.thrift.port"`
	DRPCServers      []string `yaml:"drpc.servers"`
	DRPCPort         portList `yaml:"drpc.port"`
	DRPCInvocations  portList `yaml:"drpc.invocations.port"`
	UIPort           portList `yaml:"ui.port"`
	LogviewerPort    portList `yaml:"logviewer.port"`
	SupervisorSlots  portList `yaml:"supervisor.slots.ports"`
}

type zookeeperSection struct {
	FollowerPort portList `yaml:"follower.port"`
	ElectionPort portList `yaml:"election.port"`
}

// portList accepts either a single port or a sequence of ports.
type portList []int

func (p *portList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var port int
		if err := value.Decode(&port); err != nil {
			return fmt.Errorf("line %d: port must be an integer", value.Line)
		}
		*p = portList{port}
		return nil
	case yaml.SequenceNode:
		var ports []int
		if err := value.Decode(&ports); err != nil {
			return fmt.Errorf("line %d: ports must be integers", value.Line)
		}
		*p = portList(ports)
		return nil
	default:
		return fmt.Errorf("line %d: port must be an integer or a list of integers", value.Line)
	}
}

// =============================================================================
// Parser Functions
// =============================================================================

// Decode converts a storm-setup.yaml document into a Topology without
// checking cross references. Use Validate for a full report or Parse for
// the strict form.
func Decode(content []byte) (*Topology, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, NewConfigError("", "topology document is empty", ErrEmptyInput)
	}

	var doc document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, NewConfigError("", fmt.Sprintf("invalid YAML syntax: %v", err), ErrInvalidYAML)
	}

	t := &Topology{
		Servers:          make(map[string]string, len(doc.Servers)),
		ZookeeperServers: trimAll(doc.StormYAML.ZookeeperServers),
		NimbusHost:       strings.TrimSpace(doc.StormYAML.NimbusHost),
		UIHost:           strings.TrimSpace(doc.UIHost),
		DRPCServers:      trimAll(doc.StormYAML.DRPCServers),
		SupervisorHosts:  trimAll(doc.SupervisorHosts),
		Ports:            make(map[PortKey][]int),
		LocalhostSetup:   doc.LocalhostSetup,
		EC2:              doc.EC2,
		Hetzner:          doc.Hetzner,
	}
	for name, addr := range doc.Servers {
		t.Servers[strings.TrimSpace(name)] = strings.TrimSpace(addr)
	}
	if doc.Servers == nil {
		t.Servers = nil
	}

	overrides := map[PortKey]portList{
		PortZookeeperClient:   doc.StormYAML.ZookeeperPort,
		PortNimbusThrift:      doc.StormYAML.NimbusThriftPort,
		PortDRPC:              doc.StormYAML.DRPCPort,
		PortDRPCInvocations:   doc.StormYAML.DRPCInvocations,
		PortUI:                doc.StormYAML.UIPort,
		PortLogviewer:         doc.StormYAML.LogviewerPort,
		PortSupervisorSlots:   doc.StormYAML.SupervisorSlots,
		PortZookeeperFollower: doc.ZookeeperSetup.FollowerPort,
		PortZookeeperElection: doc.ZookeeperSetup.ElectionPort,
	}
	for key, spec := range portSpecs {
		if ports := overrides[key]; len(ports) > 0 {
			t.Ports[key] = []int(ports)
			continue
		}
		t.Ports[key] = append([]int(nil), spec.Defaults...)
	}

	return t, nil
}

// Parse decodes and validates a topology document. The first error-level
// issue is returned as a ConfigError; warnings are ignored.
func Parse(content []byte) (*Topology, error) {
	t, err := Decode(content)
	if err != nil {
		return nil, err
	}
	if issues := Validate(t); issues.HasErrors() {
		first := issues.Errors()[0]
		return nil, NewConfigError(first.Field, first.Message, first.Err)
	}
	return t, nil
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
