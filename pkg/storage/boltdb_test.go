package storage

import (
	"errors"
	"testing"

	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResourceCRUD(t *testing.T) {
	s := newTestStore(t)

	grp := &types.Resource{
		ID:     "grp_1",
		Kind:   types.ResourceKindGroup,
		Params: map[string]string{"ordered": "true"},
		Children: []*types.Resource{
			{ID: "ip_1", Kind: types.ResourceKindPrimitive, SavedParams: map[string]string{"ip": "10.0.0.1"}},
		},
	}
	require.NoError(t, s.SaveResource(grp))

	got, err := s.GetResource("grp_1")
	require.NoError(t, err)
	assert.Equal(t, types.ResourceKindGroup, got.Kind)
	require.Len(t, got.Children, 1)
	v, ok := got.Children[0].SavedValue("ip")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", v)

	grp.IsRemoved = true
	require.NoError(t, s.SaveResource(grp))
	list, err := s.ListResources()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRemoved)

	require.NoError(t, s.DeleteResource("grp_1"))
	_, err = s.GetResource("grp_1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlaceholderCRUD(t *testing.T) {
	s := newTestStore(t)

	ph := &types.PlaceholderState{
		ID:         "ph_5",
		Preference: types.PreferenceOr,
		ColData: &types.ConnectionData{
			Set2:         &types.ResourceSet{ID: "c5", RscIDs: []string{"r1"}},
			ConstraintID: "c5",
			Colocation:   true,
		},
		ReversedCol: true,
		OrdID:       "o5",
	}
	require.NoError(t, s.SavePlaceholder(ph))

	got, err := s.GetPlaceholder("ph_5")
	require.NoError(t, err)
	assert.Equal(t, ph, got)

	list, err := s.ListPlaceholders()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeletePlaceholder("ph_5"))
	_, err = s.GetPlaceholder("ph_5")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJournalOrder(t *testing.T) {
	s := newTestStore(t)

	// ids deliberately sort in the opposite order
	for _, id := range []string{"c", "b", "a"} {
		require.NoError(t, s.AppendJournal(&types.JournalRecord{ID: id, Operation: "set_rsc_set"}))
	}

	records, err := s.ListJournal()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveResource(&types.Resource{ID: "ip_1", Kind: types.ResourceKindPrimitive}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetResource("ip_1")
	assert.NoError(t, err)
}
