package stormconf

import (
	"fmt"
	"strings"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// ZookeeperParams holds the values appended to zoo.cfg.
type ZookeeperParams struct {
	ClientPort   int
	FollowerPort int
	ElectionPort int

	// Servers are the ensemble addresses in declaration order. The entry at
	// MyIndex holds the container address so Zookeeper can bind the election
	// port; every other entry keeps its declared address.
	Servers []string

	// MyIndex is the zero-based position of this machine in Servers. When
	// several entries are local (a localhost setup) the last one is used.
	MyIndex int
}

// Ensemble reports whether more than one Zookeeper server is declared.
func (p ZookeeperParams) Ensemble() bool {
	return len(p.Servers) > 1
}

// MyID returns the Zookeeper server id of this machine (1-based).
func (p ZookeeperParams) MyID() int {
	return p.MyIndex + 1
}

// ZookeeperParamsFrom builds ZookeeperParams for the Zookeeper container.
// It fails with an identity.MismatchError when this machine is not one of
// the declared Zookeeper servers.
func ZookeeperParamsFrom(t *topology.Topology, res *identity.Resolution) (ZookeeperParams, error) {
	zk, err := res.Require(topology.RoleZookeeper)
	if err != nil {
		return ZookeeperParams{}, err
	}
	me := zk.LastLocalIndex()
	servers := zk.Declared()
	servers[me] = zk.Addresses[me].Effective
	return ZookeeperParams{
		ClientPort:   t.FirstPort(topology.PortZookeeperClient),
		FollowerPort: t.FirstPort(topology.PortZookeeperFollower),
		ElectionPort: t.FirstPort(topology.PortZookeeperElection),
		Servers:      servers,
		MyIndex:      me,
	}, nil
}

// RenderZooCfg returns the lines appended to zoo.cfg: the client port and,
// for an ensemble, one server.N line per member.
func RenderZooCfg(p ZookeeperParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "clientPort=%d\n", p.ClientPort)
	if !p.Ensemble() {
		return b.String()
	}
	for i, addr := range p.Servers {
		fmt.Fprintf(&b, "server.%d=%s:%d:%d\n", i+1, addr, p.FollowerPort, p.ElectionPort)
	}
	return b.String()
}

// RenderMyID returns the content of the dataDir myid file. ok is false for
// a single server setup, which needs no myid file.
func RenderMyID(p ZookeeperParams) (content string, ok bool) {
	if !p.Ensemble() {
		return "", false
	}
	return fmt.Sprintf("%d\n", p.MyID()), true
}
