package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStatus = `
dcHost: node-a
colocationSets:
  c5:
    - id: c5
      rscIds: [r2, r1]
      requireAll: true
orderSets:
  o5:
    - id: o5
      rscIds: [r1]
      sequential: true
      requireAll: true
connections:
  - constraintId: c5
    colocation: true
    set1:
      id: c5
      rscIds: [r2, r1]
      requireAll: true
groups:
  grp_web: [fs_1, ip_1]
resources:
  ip_1:
    instanceAttrId: ip_1-instance_attributes
    nvpairIds:
      ip: ip_1-instance_attributes-ip
    operationsId: ip_1-operations
    operations:
      monitor:
        interval: "15"
        timeout: "40"
    operationIds:
      monitor: ip_1-monitor-15
    metaAttrsId: ip_1-meta_attributes
    colocations: [col_ip_fs]
    orders: [ord_fs_ip]
`

func TestParseSnapshot(t *testing.T) {
	s, err := ParseSnapshot([]byte(testStatus))
	require.NoError(t, err)

	assert.Equal(t, "node-a", s.DCHost)
	sets := s.RscSetsCol("c5")
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"r2", "r1"}, sets[0].RscIDs)
	assert.True(t, sets[0].RequireAll)

	ord := s.RscSetsOrd("o5")
	require.Len(t, ord, 1)
	assert.True(t, ord[0].Sequential)

	conns := s.ConnectionData()
	require.Len(t, conns, 1)
	assert.True(t, conns[0].Colocation)
	assert.True(t, conns[0].IsOneSided())

	assert.Equal(t, []string{"fs_1", "ip_1"}, s.GroupResources("grp_web"))
	assert.Equal(t, "ip_1-instance_attributes", s.ResourceInstanceAttrID("ip_1"))
	assert.Equal(t, "ip_1-instance_attributes-ip", s.ParametersNvpairsIDs("ip_1")["ip"])
	assert.Equal(t, "ip_1-operations", s.OperationsID("ip_1"))
	assert.Equal(t, "40", s.Operations("ip_1")["monitor"]["timeout"])
	assert.Equal(t, "ip_1-monitor-15", s.OperationIDs("ip_1")["monitor"])
	assert.Equal(t, "ip_1-meta_attributes", s.MetaAttrsID("ip_1"))
	assert.Equal(t, []string{"col_ip_fs"}, s.ColocationIDs("ip_1"))
	assert.Equal(t, []string{"ord_fs_ip"}, s.OrderIDs("ip_1"))
	assert.True(t, s.HasResource("fs_1"))
	assert.True(t, s.HasResource("grp_web"))
	assert.False(t, s.HasResource("missing"))
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testStatus), 0600))

	s, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "node-a", s.DCHost)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSnapshotReturnsCopies(t *testing.T) {
	s, err := ParseSnapshot([]byte(testStatus))
	require.NoError(t, err)

	sets := s.RscSetsCol("c5")
	sets[0].RscIDs[0] = "mutated"
	sets[0].RscIDs = append(sets[0].RscIDs, "r9")

	again := s.RscSetsCol("c5")
	assert.Equal(t, []string{"r2", "r1"}, again[0].RscIDs)

	conns := s.ConnectionData()
	conns[0].Reverse()
	assert.True(t, s.ConnectionData()[0].IsOneSided())
}

func TestNilSnapshotIsUnknown(t *testing.T) {
	var s *Snapshot
	var v View = s

	assert.Nil(t, v.RscSetsCol("c1"))
	assert.Nil(t, v.RscSetsOrd("o1"))
	assert.Empty(t, v.ConnectionData())
	assert.Nil(t, v.GroupResources("g"))
	assert.False(t, v.HasResource("r"))
	assert.Equal(t, "", v.ResourceInstanceAttrID("r"))
	assert.Nil(t, v.ParametersNvpairsIDs("r"))
	assert.Nil(t, v.Operations("r"))
	assert.Equal(t, "", v.OperationsRefID("r"))
}

func TestSnapshotClone(t *testing.T) {
	s := &Snapshot{
		ColocationSets: map[string][]*types.ResourceSet{
			"c1": {{ID: "c1", RscIDs: []string{"a"}}},
		},
	}
	c := s.Clone()
	c.ColocationSets["c1"][0].RscIDs[0] = "b"
	assert.Equal(t, "a", s.ColocationSets["c1"][0].RscIDs[0])
}
