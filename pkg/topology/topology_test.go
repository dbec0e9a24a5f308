package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/pexm/pkg/errors/errdefs"
)

func TestPlan_HAInvariant(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantHA  bool
		wantErr string
	}{
		{
			name: "no replicas",
			in:   Input{Master: "m"},
		},
		{
			name:    "only master replica",
			in:      Input{Master: "m", MasterReplica: "r", PuppetDBDatabase: "db"},
			wantErr: "invalid HA combination",
		},
		{
			name:    "only database replica",
			in:      Input{Master: "m", PuppetDBDatabaseReplica: "dbr", PuppetDBDatabase: "db"},
			wantErr: "invalid HA combination",
		},
		{
			name:    "both replicas without primary database",
			in:      Input{Master: "m", MasterReplica: "r", PuppetDBDatabaseReplica: "dbr"},
			wantErr: "missing primary database host for HA",
		},
		{
			name:   "both replicas with primary database",
			in:     Input{Master: "m", MasterReplica: "r", PuppetDBDatabaseReplica: "dbr", PuppetDBDatabase: "db"},
			wantHA: true,
		},
		{
			name:    "missing master",
			in:      Input{},
			wantErr: "missing master host",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := Plan(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errdefs.IsConfig(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, topo)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHA, topo.HA())
		})
	}
}

func TestPlan_CompilerPartition(t *testing.T) {
	compilers := []string{"c0", "c1", "c2", "c3"}

	ha, err := Plan(Input{Master: "m", Compilers: compilers, MasterReplica: "r", PuppetDBDatabase: "db", PuppetDBDatabaseReplica: "dbr"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c2"}, ha.CompilerClusterA())
	assert.Equal(t, []string{"c1", "c3"}, ha.CompilerClusterB())

	noHA, err := Plan(Input{Master: "m", Compilers: compilers})
	require.NoError(t, err)
	assert.Equal(t, compilers, noHA.CompilerClusterA())
	assert.Equal(t, []string{}, noHA.CompilerClusterB())
}

func TestPlan_ScenarioA_NoHANoExternalDatabase(t *testing.T) {
	topo, err := Plan(Input{Master: "master", Compilers: []string{"c0", "c1"}})
	require.NoError(t, err)

	assert.False(t, topo.HA())
	assert.False(t, topo.HasExternalDatabase())
	assert.Equal(t, []string{}, topo.DatabaseHosts())
	assert.Equal(t, []string{"c0", "c1"}, topo.AgentHosts())
	assert.Equal(t, []string{"master"}, topo.InstallerHosts())
	assert.Equal(t, []string{"master"}, topo.CoreHosts())
	assert.Equal(t, []string{}, topo.HAHosts())
	assert.Equal(t, []string{"master", "c0", "c1"}, topo.AllHosts())
}

func TestPlan_ScenarioB_HA(t *testing.T) {
	topo, err := Plan(Input{
		Master:                  "master",
		Compilers:               []string{"c0", "c1", "c2", "c3"},
		MasterReplica:           "replica",
		PuppetDBDatabase:        "db",
		PuppetDBDatabaseReplica: "dbr",
	})
	require.NoError(t, err)

	assert.True(t, topo.HA())
	assert.Len(t, topo.HAHosts(), 2)
	assert.Len(t, topo.CompilerClusterA(), 2)
	assert.Len(t, topo.CompilerClusterB(), 2)
	assert.Equal(t, []string{"master", "db", "dbr"}, topo.InstallerHosts())
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "replica"}, topo.AgentHosts())
	assert.Equal(t, []string{"db", "dbr"}, topo.DatabaseHosts())
	assert.Equal(t, []string{"master", "db", "replica", "dbr", "c0", "c1", "c2", "c3"}, topo.AllHosts())
}

func TestPlan_ScenarioC_SingleReplicaRejected(t *testing.T) {
	_, err := Plan(Input{Master: "master", MasterReplica: "replica", PuppetDBDatabase: "db"})
	require.Error(t, err)
	assert.True(t, errdefs.IsConfig(err))
}

func TestPlan_DuplicateCompilersCollapsed(t *testing.T) {
	topo, err := Plan(Input{Master: "m", Compilers: []string{"c0", "", "c0", "c1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1"}, topo.CompilerHosts())

	// parity follows the distinct hosts, not the raw positions
	ha, err := Plan(Input{Master: "m", PuppetDBDatabase: "db", MasterReplica: "r", PuppetDBDatabaseReplica: "dbr",
		Compilers: []string{"c0", "c1", "c0", "c2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c2"}, ha.CompilerClusterA())
	assert.Equal(t, []string{"c1"}, ha.CompilerClusterB())
}

func TestTopology_AccessorsReturnCopies(t *testing.T) {
	topo, err := Plan(Input{Master: "m", Compilers: []string{"c0"}})
	require.NoError(t, err)

	all := topo.AllHosts()
	all[0] = "mutated"
	assert.Equal(t, "m", topo.AllHosts()[0])
}

func TestTopology_Roles(t *testing.T) {
	topo, err := Plan(Input{
		Master:                  "m",
		Compilers:               []string{"c0", "c1"},
		MasterReplica:           "r",
		PuppetDBDatabase:        "db",
		PuppetDBDatabaseReplica: "dbr",
	})
	require.NoError(t, err)

	assert.Equal(t, []Role{
		{Host: "m", Role: "master", Cluster: ClusterA},
		{Host: "db", Role: "puppetdb-database", Cluster: ClusterA},
		{Host: "r", Role: "master-replica", Cluster: ClusterB},
		{Host: "dbr", Role: "puppetdb-database-replica", Cluster: ClusterB},
		{Host: "c0", Role: "compiler", Cluster: ClusterA},
		{Host: "c1", Role: "compiler", Cluster: ClusterB},
	}, topo.Roles())
}
