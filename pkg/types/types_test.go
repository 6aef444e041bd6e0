package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(ids ...string) *ResourceSet {
	return &ResourceSet{ID: "s", RscIDs: ids, RequireAll: true}
}

func TestConnectionDataReverseTwiceRestores(t *testing.T) {
	tests := []struct {
		name string
		data *ConnectionData
	}{
		{name: "two sided", data: &ConnectionData{Set1: set("a"), Set2: set("b", "c"), ConstraintID: "o5"}},
		{name: "one sided", data: &ConnectionData{Set1: set("a"), ConstraintID: "c5", Colocation: true}},
		{name: "no sets", data: &ConnectionData{ConstraintID: "o1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.data.Copy()
			d.Reverse()
			if tt.data.Set1 != nil || tt.data.Set2 != nil {
				assert.NotEqual(t, tt.data, d)
			}

			d.Reverse()
			assert.Equal(t, tt.data, d)
		})
	}
}

func TestConnectionDataShape(t *testing.T) {
	tests := []struct {
		name     string
		data     *ConnectionData
		empty    bool
		oneSided bool
		twoSided bool
		wantKind ConstraintKind
	}{
		{name: "nil", data: nil, empty: true},
		{name: "empty sets", data: &ConnectionData{Set1: set(), Set2: set()}, empty: true, twoSided: true, wantKind: ConstraintOrder},
		{name: "set1 only", data: &ConnectionData{Set1: set("a"), Colocation: true}, oneSided: true, wantKind: ConstraintColocation},
		{name: "set2 only", data: &ConnectionData{Set2: set("a")}, wantKind: ConstraintOrder},
		{name: "both", data: &ConnectionData{Set1: set("a"), Set2: set("b")}, twoSided: true, wantKind: ConstraintOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.data.IsEmpty())
			assert.Equal(t, tt.oneSided, tt.data.IsOneSided())
			assert.Equal(t, tt.twoSided, tt.data.IsTwoSided())
			if tt.data != nil {
				assert.Equal(t, tt.wantKind, tt.data.Kind())
			}
		})
	}
}

func TestConnectionDataCopyIsDeep(t *testing.T) {
	d := &ConnectionData{Set1: set("a"), Set2: set("b"), ConstraintID: "c5", Colocation: true}
	c := d.Copy()
	c.Set1.RscIDs[0] = "x"
	c.Set2 = nil

	assert.Equal(t, []string{"a"}, d.Set1.RscIDs)
	assert.NotNil(t, d.Set2)
	assert.Nil(t, (*ConnectionData)(nil).Copy())
}

func TestResourceSetIsSubsetOf(t *testing.T) {
	tests := []struct {
		name  string
		s     *ResourceSet
		other *ResourceSet
		want  bool
	}{
		{name: "nil of nil", want: true},
		{name: "empty of anything", s: set(), other: set("a"), want: true},
		{name: "members of empty", s: set("a"), other: set(), want: false},
		{name: "order ignored", s: set("b", "a"), other: set("a", "b", "c"), want: true},
		{name: "missing member", s: set("a", "d"), other: set("a", "b"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.IsSubsetOf(tt.other))
		})
	}
}

func TestResourceSetEquals(t *testing.T) {
	tests := []struct {
		name  string
		s     *ResourceSet
		other *ResourceSet
		want  bool
	}{
		{name: "both nil", want: true},
		{name: "one nil", s: set("a"), want: false},
		{name: "same members any order", s: set("a", "b"), other: set("b", "a"), want: true},
		{name: "id ignored", s: &ResourceSet{ID: "c1", RscIDs: []string{"a"}}, other: &ResourceSet{ID: "c2", RscIDs: []string{"a"}}, want: true},
		{name: "different length", s: set("a"), other: set("a", "b"), want: false},
		{name: "duplicate member", s: set("a", "a"), other: set("a", "b"), want: false},
		{name: "require all differs", s: set("a"), other: &ResourceSet{RscIDs: []string{"a"}}, want: false},
		{name: "role differs", s: &ResourceSet{RscIDs: []string{"a"}, ColocationRole: "Master"}, other: &ResourceSet{RscIDs: []string{"a"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Equals(tt.other))
			assert.Equal(t, tt.want, tt.other.Equals(tt.s))
		})
	}
}

func TestResourceSetWithMember(t *testing.T) {
	s := set("a", "b")

	front := s.WithMember("c", true)
	assert.Equal(t, []string{"c", "a", "b"}, front.RscIDs)

	back := s.WithMember("c", false)
	assert.Equal(t, []string{"a", "b", "c"}, back.RscIDs)

	dup := s.WithMember("a", true)
	assert.Equal(t, []string{"a", "b"}, dup.RscIDs)
	assert.NotSame(t, s, dup)

	assert.Equal(t, []string{"a", "b"}, s.RscIDs, "source set is never modified")

	fresh := (*ResourceSet)(nil).WithMember("z", false)
	require.NotNil(t, fresh)
	assert.Equal(t, []string{"z"}, fresh.RscIDs)
}

func TestResourceMembers(t *testing.T) {
	a, b := &Resource{ID: "a", Kind: ResourceKindPrimitive}, &Resource{ID: "b", Kind: ResourceKindPrimitive}
	grp := &Resource{ID: "g", Kind: ResourceKindGroup, Children: []*Resource{a, b}}
	cl := &Resource{ID: "cl", Kind: ResourceKindClone, Contained: grp}

	assert.Equal(t, []*Resource{a, b}, grp.Members())
	assert.Equal(t, []*Resource{grp}, cl.Members())
	assert.Nil(t, (&Resource{Kind: ResourceKindClone}).Members())
	assert.Nil(t, a.Members())
	assert.Same(t, b, grp.Child("b"))
	assert.Nil(t, grp.Child("x"))
}
