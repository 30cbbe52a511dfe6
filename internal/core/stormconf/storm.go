// Package stormconf renders the configuration files used inside the Storm and
// Zookeeper containers.
//
// All functions are pure: they take resolved addresses and ports and return
// file contents. Writing the files is left to the shell.
package stormconf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// Placeholders in storm.yaml.sample replaced by RenderStormYAML.
const (
	PlaceholderZookeeper  = "### zookeeper section ###"
	PlaceholderNimbus     = "### nimbus section ###"
	PlaceholderDRPC       = "### drpc section ###"
	PlaceholderUI         = "### ui section ###"
	PlaceholderLogviewer  = "### logviewer section ###"
	PlaceholderSupervisor = "### supervisor section ###"
)

// StormParams holds every value substituted into storm.yaml.
type StormParams struct {
	ZookeeperServers    []string
	ZookeeperPort       int
	NimbusHost          string
	NimbusThriftPort    int
	DRPCServers         []string
	DRPCPort            int
	DRPCInvocationsPort int
	UIPort              int
	LogviewerPort       int
	SupervisorSlots     []int
}

// StormParamsFrom builds StormParams from a topology and the resolution made
// inside the container.
//
// Zookeeper servers and the nimbus host use the resolved effective
// addresses, so a co-located Zookeeper or Nimbus is reached through its
// Docker link. DRPC servers keep their declared addresses: no container links
// to DRPC.
func StormParamsFrom(t *topology.Topology, res *identity.Resolution) (StormParams, error) {
	zk, ok := res.Role(topology.RoleZookeeper)
	if !ok || len(zk.Addresses) == 0 {
		return StormParams{}, topology.NewConfigError("storm.yaml.storm.zookeeper.servers", "no zookeeper servers declared", topology.ErrMissingKey)
	}
	nimbus, ok := res.Role(topology.RoleNimbus)
	if !ok || len(nimbus.Addresses) == 0 {
		return StormParams{}, topology.NewConfigError("storm.yaml.nimbus.host", "nimbus host is not declared", topology.ErrMissingKey)
	}
	drpcServers, err := t.RoleAddresses(topology.RoleDRPC)
	if err != nil {
		return StormParams{}, err
	}

	return StormParams{
		ZookeeperServers:    zk.Effective(),
		ZookeeperPort:       t.FirstPort(topology.PortZookeeperClient),
		NimbusHost:          nimbus.Addresses[0].Effective,
		NimbusThriftPort:    t.FirstPort(topology.PortNimbusThrift),
		DRPCServers:         drpcServers,
		DRPCPort:            t.FirstPort(topology.PortDRPC),
		DRPCInvocationsPort: t.FirstPort(topology.PortDRPCInvocations),
		UIPort:              t.FirstPort(topology.PortUI),
		LogviewerPort:       t.FirstPort(topology.PortLogviewer),
		SupervisorSlots:     t.Port(topology.PortSupervisorSlots),
	}, nil
}

// RenderStormYAML replaces the section placeholders of a storm.yaml template.
// Placeholders missing from the template are skipped; text around them is
// kept verbatim.
func RenderStormYAML(template string, p StormParams) (string, error) {
	sections := []struct {
		placeholder string
		entries     []entry
	}{
		{PlaceholderZookeeper, []entry{
			{"storm.zookeeper.servers", quotedList(p.ZookeeperServers)},
			{"storm.zookeeper.port", intScalar(p.ZookeeperPort)},
		}},
		{PlaceholderNimbus, []entry{
			{"nimbus.host", quoted(p.NimbusHost)},
			{"nimbus.thrift.port", intScalar(p.NimbusThriftPort)},
		}},
		{PlaceholderDRPC, []entry{
			{"drpc.servers", quotedList(p.DRPCServers)},
			{"drpc.port", intScalar(p.DRPCPort)},
			{"drpc.invocations.port", intScalar(p.DRPCInvocationsPort)},
		}},
		{PlaceholderUI, []entry{
			{"ui.port", intScalar(p.UIPort)},
		}},
		{PlaceholderLogviewer, []entry{
			{"logviewer.port", intScalar(p.LogviewerPort)},
		}},
		{PlaceholderSupervisor, []entry{
			{"supervisor.slots.ports", intList(p.SupervisorSlots)},
		}},
	}

	out := template
	for _, s := range sections {
		if !strings.Contains(out, s.placeholder) {
			continue
		}
		rendered, err := renderMapping(s.entries)
		if err != nil {
			return "", fmt.Errorf("render %q: %w", s.placeholder, err)
		}
		out = strings.ReplaceAll(out, s.placeholder, "\n"+rendered)
	}
	return out, nil
}

// =============================================================================
// YAML node helpers
// =============================================================================

type entry struct {
	key   string
	value *yaml.Node
}

func renderMapping(entries []entry) (string, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key},
			e.value,
		)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

func intScalar(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
}

func quotedList(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, it := range items {
		seq.Content = append(seq.Content, quoted(it))
	}
	if len(items) == 0 {
		seq.Style = yaml.FlowStyle
	}
	return seq
}

func intList(items []int) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, it := range items {
		seq.Content = append(seq.Content, intScalar(it))
	}
	if len(items) == 0 {
		seq.Style = yaml.FlowStyle
	}
	return seq
}
