package editable

import (
	"regexp"
	"testing"

	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpecs = []ParamSpec{
	{Name: "ip", Regexp: regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`), Required: true, Default: "10.0.0.1"},
	{Name: "cidr_netmask", Regexp: regexp.MustCompile(`^\d+$`), Default: "24"},
	{Name: "nic", Default: "eth0"},
}

// countingChecker records how often each parameter was validated
type countingChecker struct {
	bad      map[string]bool
	disabled map[string]string
	calls    map[string]int
}

func newCountingChecker() *countingChecker {
	return &countingChecker{bad: map[string]bool{}, disabled: map[string]string{}, calls: map[string]int{}}
}

func (c *countingChecker) CheckParam(param, value string) bool {
	c.calls[param]++
	return !c.bad[param]
}

func (c *countingChecker) IsEnabled(param string) string {
	return c.disabled[param]
}

func newResource(isNew bool) *types.Resource {
	return &types.Resource{ID: "ip_1", Kind: types.ResourceKindPrimitive, IsNew: isNew}
}

func TestNewTrackerInitializesValues(t *testing.T) {
	r := newResource(true)
	r.SavedParams = map[string]string{"ip": "192.168.1.10"}

	ForResource(r, testSpecs, nil)

	assert.Equal(t, "192.168.1.10", r.Value("ip"))
	assert.Equal(t, "24", r.Value("cidr_netmask"))
	assert.Equal(t, "eth0", r.Value("nic"))
}

func TestCheckFieldsCorrectAllParams(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		bad      map[string]bool
		expected bool
	}{
		{
			name:     "all valid",
			values:   map[string]string{"ip": "10.1.1.1", "cidr_netmask": "16", "nic": "eth1"},
			expected: true,
		},
		{
			name:     "regexp mismatch",
			values:   map[string]string{"ip": "not-an-ip", "cidr_netmask": "16", "nic": "eth1"},
			expected: false,
		},
		{
			name:     "required empty",
			values:   map[string]string{"ip": "", "cidr_netmask": "16", "nic": "eth1"},
			expected: false,
		},
		{
			name:     "check param rejects one",
			values:   map[string]string{"ip": "10.1.1.1", "cidr_netmask": "16", "nic": "eth1"},
			bad:      map[string]bool{"nic": true},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResource(false)
			r.Params = tt.values
			checker := newCountingChecker()
			for k, v := range tt.bad {
				checker.bad[k] = v
			}
			tracker := ForResource(r, testSpecs, checker)

			assert.Equal(t, tt.expected, tracker.CheckFieldsCorrect("", tracker.Params()))
		})
	}
}

func TestCheckFieldsCorrectChangedParamBypassesCache(t *testing.T) {
	r := newResource(false)
	checker := newCountingChecker()
	checker.bad["nic"] = true
	tracker := ForResource(r, testSpecs, checker)
	params := tracker.Params()

	require.False(t, tracker.CheckFieldsCorrect("", params))
	assert.True(t, tracker.WrongValue("nic"))

	checker.bad["nic"] = false
	r.SetValue("nic", "eth2")

	assert.True(t, tracker.CheckFieldsCorrect("nic", params))
	assert.False(t, tracker.WrongValue("nic"))

	// Only the changed parameter was validated again.
	assert.Equal(t, 1, checker.calls["ip"])
	assert.Equal(t, 1, checker.calls["cidr_netmask"])
	assert.Equal(t, 2, checker.calls["nic"])
}

func TestCheckFieldsCorrectCacheMasksUnrelatedChange(t *testing.T) {
	r := newResource(false)
	checker := newCountingChecker()
	tracker := ForResource(r, testSpecs, checker)
	params := tracker.Params()

	require.True(t, tracker.CheckFieldsCorrect("", params))

	// A stale verdict is reused for parameters other than the changed one.
	r.SetValue("ip", "garbage")
	assert.True(t, tracker.CheckFieldsCorrect("nic", params))

	assert.False(t, tracker.CheckFieldsCorrect("ip", params))
	assert.True(t, tracker.WrongValue("ip"))
}

func TestCheckFieldsCorrectValidatesDisabledParams(t *testing.T) {
	r := newResource(false)
	r.Params = map[string]string{"ip": "bad", "cidr_netmask": "24", "nic": "eth0"}
	checker := newCountingChecker()
	checker.disabled["ip"] = "resource is running"
	tracker := ForResource(r, testSpecs, checker)

	assert.False(t, tracker.CheckFieldsCorrect("", tracker.Params()))
	assert.Equal(t, "resource is running", tracker.DisabledReason("ip"))
	assert.True(t, tracker.WrongValue("ip"))
}

func TestCheckFieldsChanged(t *testing.T) {
	r := newResource(false)
	r.SavedParams = map[string]string{"ip": "10.0.0.5"}
	tracker := ForResource(r, testSpecs, nil)
	params := tracker.Params()

	assert.False(t, tracker.CheckFieldsChanged("", params))

	r.SetValue("cidr_netmask", "16")
	assert.True(t, tracker.CheckFieldsChanged("cidr_netmask", params))

	r.SetValue("cidr_netmask", "24")
	assert.False(t, tracker.CheckFieldsChanged("cidr_netmask", params))
}

func TestSetApplyButtons(t *testing.T) {
	t.Run("new resource without edits", func(t *testing.T) {
		tracker := ForResource(newResource(true), testSpecs, nil)

		state := tracker.SetApplyButtons("", tracker.Params())
		assert.True(t, state.Apply)
		assert.False(t, state.Revert)
	})

	t.Run("committed resource without edits", func(t *testing.T) {
		r := newResource(false)
		r.SavedParams = map[string]string{"ip": "10.0.0.9", "cidr_netmask": "24", "nic": "eth0"}
		tracker := ForResource(r, testSpecs, nil)

		state := tracker.SetApplyButtons("", tracker.Params())
		assert.False(t, state.Apply)
		assert.False(t, state.Revert)
	})

	t.Run("committed resource with valid edit", func(t *testing.T) {
		r := newResource(false)
		tracker := ForResource(r, testSpecs, nil)
		r.SetValue("nic", "bond0")

		state := tracker.SetApplyButtons("nic", tracker.Params())
		assert.True(t, state.Apply)
		assert.True(t, state.Revert)
	})

	t.Run("new resource with invalid value", func(t *testing.T) {
		r := newResource(true)
		tracker := ForResource(r, testSpecs, nil)
		r.SetValue("cidr_netmask", "x")

		state := tracker.SetApplyButtons("cidr_netmask", tracker.Params())
		assert.False(t, state.Apply)
		assert.True(t, state.Revert)
	})
}

func TestRevertAndStore(t *testing.T) {
	r := newResource(false)
	r.SavedParams = map[string]string{"ip": "10.0.0.5"}
	tracker := ForResource(r, testSpecs, nil)

	r.SetValue("ip", "bad")
	r.SetValue("nic", "eth7")
	require.False(t, tracker.CheckFieldsCorrect("", tracker.Params()))

	tracker.Revert()
	assert.Equal(t, "10.0.0.5", r.Value("ip"))
	assert.Equal(t, "eth0", r.Value("nic"))
	assert.False(t, tracker.WrongValue("ip"))
	assert.True(t, tracker.CheckFieldsCorrect("nic", tracker.Params()))

	r.SetValue("nic", "eth9")
	tracker.Store()
	saved, ok := r.SavedValue("nic")
	assert.True(t, ok)
	assert.Equal(t, "eth9", saved)
	assert.False(t, tracker.CheckFieldsChanged("", tracker.Params()))
}

func TestNonDefault(t *testing.T) {
	r := newResource(false)
	tracker := ForResource(r, testSpecs, nil)
	r.SetValue("ip", "10.9.9.9")
	r.SetValue("nic", "eth3")

	assert.Equal(t, map[string]string{"nic": "eth3"}, tracker.NonDefault("ip"))
}

func TestNonDefaultLeavesSourceUntouched(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		saved  map[string]string
		want   map[string]string
	}{
		{name: "unset uses defaults", want: map[string]string{}},
		{
			name:   "current value wins",
			params: map[string]string{"nic": "eth1"},
			saved:  map[string]string{"nic": "eth2"},
			want:   map[string]string{"nic": "eth1"},
		},
		{
			name:  "committed value without current",
			saved: map[string]string{"cidr_netmask": "16"},
			want:  map[string]string{"cidr_netmask": "16"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResource(false)
			r.Params, r.SavedParams = tt.params, tt.saved

			assert.Equal(t, tt.want, NonDefault(r, testSpecs, "ip"))
			assert.Equal(t, tt.params, r.Params)
		})
	}
}
