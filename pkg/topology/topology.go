// Package topology derives every host grouping an install needs from the
// sparse set of hosts a user supplies.
package topology

import (
	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/hostset"
)

// Cluster names used for the availability-group certificate extension.
const (
	ClusterA = "A"
	ClusterB = "B"
)

// Input is the host layout as the user describes it. Optional hosts are
// empty strings when absent.
type Input struct {
	Master                  string
	Compilers               []string
	MasterReplica           string
	PuppetDBDatabase        string
	PuppetDBDatabaseReplica string
}

// Topology is computed once by Plan and never changes afterwards. Accessors
// return copies so callers cannot mutate it.
type Topology struct {
	master                  string
	masterReplica           string
	puppetdbDatabase        string
	puppetdbDatabaseReplica string
	ha                      bool

	core      []string
	haHosts   []string
	compilers []string
	all       []string
	databases []string
	installer []string
	agents    []string
	clusterA  []string
	clusterB  []string
}

// Plan validates the HA invariant and computes the topology.
//
// HA is enabled iff both the master replica and the database replica are
// given; exactly one of them is an error. An HA topology also needs the
// primary database host.
//
// Repeated compilers are collapsed to their first occurrence before the
// parity split, so indices count distinct hosts in input order.
func Plan(in Input) (*Topology, error) {
	if in.Master == "" {
		return nil, errdefs.NewConfigError("missing master host")
	}

	haHosts := hostset.Flatten(hostset.Of(in.MasterReplica, in.PuppetDBDatabaseReplica))
	var ha bool
	switch len(haHosts) {
	case 0:
		ha = false
	case 2:
		ha = true
	default:
		return nil, errdefs.NewConfigError("invalid HA combination")
	}
	if ha && in.PuppetDBDatabase == "" {
		return nil, errdefs.NewConfigError("missing primary database host for HA")
	}

	compilers := hostset.Flatten(in.Compilers)
	clusterA, clusterB := partition(compilers, ha)

	t := &Topology{
		master:                  in.Master,
		masterReplica:           in.MasterReplica,
		puppetdbDatabase:        in.PuppetDBDatabase,
		puppetdbDatabaseReplica: in.PuppetDBDatabaseReplica,
		ha:                      ha,
		core:                    hostset.Flatten(hostset.Of(in.Master, in.PuppetDBDatabase)),
		haHosts:                 haHosts,
		compilers:               compilers,
		databases:               hostset.Flatten(hostset.Of(in.PuppetDBDatabase, in.PuppetDBDatabaseReplica)),
		installer:               hostset.Flatten(hostset.Of(in.Master, in.PuppetDBDatabase, in.PuppetDBDatabaseReplica)),
		agents:                  hostset.Flatten(compilers, hostset.Of(in.MasterReplica)),
		clusterA:                clusterA,
		clusterB:                clusterB,
	}
	t.all = hostset.Flatten(t.core, t.haHosts, t.compilers)
	return t, nil
}

// partition spreads compilers over the two database backends by input
// index parity. Without HA there is only one backend so every compiler
// lands in cluster A.
func partition(compilers []string, ha bool) (a, b []string) {
	a, b = []string{}, []string{}
	for i, c := range compilers {
		if ha && i%2 == 1 {
			b = append(b, c)
			continue
		}
		a = append(a, c)
	}
	return a, b
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func (t *Topology) Master() string                  { return t.master }
func (t *Topology) MasterReplica() string           { return t.masterReplica }
func (t *Topology) PuppetDBDatabase() string        { return t.puppetdbDatabase }
func (t *Topology) PuppetDBDatabaseReplica() string { return t.puppetdbDatabaseReplica }

// HA reports whether the topology carries replicas.
func (t *Topology) HA() bool { return t.ha }

// HasExternalDatabase reports whether the primary database runs on its own host.
func (t *Topology) HasExternalDatabase() bool { return t.puppetdbDatabase != "" }

func (t *Topology) CoreHosts() []string        { return clone(t.core) }
func (t *Topology) HAHosts() []string          { return clone(t.haHosts) }
func (t *Topology) CompilerHosts() []string    { return clone(t.compilers) }
func (t *Topology) AllHosts() []string         { return clone(t.all) }
func (t *Topology) DatabaseHosts() []string    { return clone(t.databases) }
func (t *Topology) InstallerHosts() []string   { return clone(t.installer) }
func (t *Topology) AgentHosts() []string       { return clone(t.agents) }
func (t *Topology) CompilerClusterA() []string { return clone(t.clusterA) }
func (t *Topology) CompilerClusterB() []string { return clone(t.clusterB) }

// Role describes one host's place in the topology, used for display.
type Role struct {
	Host    string
	Role    string
	Cluster string
}

// Roles lists every host with its role and availability group: server
// roles first, then compilers grouped by cluster.
func (t *Topology) Roles() []Role {
	roles := make([]Role, 0, len(t.all))
	add := func(host, role, cluster string) {
		if host != "" {
			roles = append(roles, Role{Host: host, Role: role, Cluster: cluster})
		}
	}
	add(t.master, "master", ClusterA)
	add(t.puppetdbDatabase, "puppetdb-database", ClusterA)
	add(t.masterReplica, "master-replica", ClusterB)
	add(t.puppetdbDatabaseReplica, "puppetdb-database-replica", ClusterB)
	for _, c := range t.clusterA {
		add(c, "compiler", ClusterA)
	}
	for _, c := range t.clusterB {
		add(c, "compiler", ClusterB)
	}
	return roles
}
