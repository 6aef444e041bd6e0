package types

import (
	"time"
)

// ResourceKind tags the variant of a cluster resource
type ResourceKind string

const (
	ResourceKindPrimitive   ResourceKind = "primitive"
	ResourceKindGroup       ResourceKind = "group"
	ResourceKindClone       ResourceKind = "clone"
	ResourceKindPlaceholder ResourceKind = "placeholder"
)

// Resource represents a cluster-managed service unit
type Resource struct {
	ID       string       `json:"id" yaml:"id"` // CRM id
	Kind     ResourceKind `json:"kind" yaml:"kind"`
	Class    string       `json:"class,omitempty" yaml:"class,omitempty"`
	Provider string       `json:"provider,omitempty" yaml:"provider,omitempty"`
	Type     string       `json:"type,omitempty" yaml:"type,omitempty"`

	IsNew     bool `json:"isNew" yaml:"isNew"`
	IsRemoved bool `json:"isRemoved" yaml:"isRemoved"`
	IsMaster  bool `json:"isMaster" yaml:"isMaster"`

	// Params holds the values currently being edited, SavedParams the
	// last committed ones.
	Params      map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	SavedParams map[string]string `json:"savedParams,omitempty" yaml:"savedParams,omitempty"`

	MetaAttrs  map[string]string            `json:"metaAttrs,omitempty" yaml:"metaAttrs,omitempty"`
	Operations map[string]map[string]string `json:"operations,omitempty" yaml:"operations,omitempty"`

	Children  []*Resource `json:"children,omitempty" yaml:"children,omitempty"`   // group only
	Contained *Resource   `json:"contained,omitempty" yaml:"contained,omitempty"` // clone only

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// Members returns the resources directly composed by r
func (r *Resource) Members() []*Resource {
	switch r.Kind {
	case ResourceKindGroup:
		return r.Children
	case ResourceKindClone:
		if r.Contained == nil {
			return nil
		}
		return []*Resource{r.Contained}
	default:
		return nil
	}
}

// Composite reports whether r owns or wraps other resources
func (r *Resource) Composite() bool {
	return r.Kind == ResourceKindGroup || r.Kind == ResourceKindClone
}

// Startable reports whether the CRM can start r
func (r *Resource) Startable() bool {
	return r.Kind != ResourceKindPlaceholder
}

// Constrainable reports whether r can be referenced from a constraint
func (r *Resource) Constrainable() bool {
	return !r.IsRemoved
}

// HasValue reports whether param has a current value
func (r *Resource) HasValue(param string) bool {
	_, ok := r.Params[param]
	return ok
}

// Value returns the current value of param
func (r *Resource) Value(param string) string {
	return r.Params[param]
}

// SetValue sets the current value of param
func (r *Resource) SetValue(param, value string) {
	if r.Params == nil {
		r.Params = make(map[string]string)
	}
	r.Params[param] = value
}

// SavedValue returns the last committed value of param
func (r *Resource) SavedValue(param string) (string, bool) {
	v, ok := r.SavedParams[param]
	return v, ok
}

// StoreValue records value as the committed value of param
func (r *Resource) StoreValue(param, value string) {
	if r.SavedParams == nil {
		r.SavedParams = make(map[string]string)
	}
	r.SavedParams[param] = value
}

// Child returns the group child with the given id
func (r *Resource) Child(id string) *Resource {
	for _, c := range r.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ConstraintKind distinguishes colocation from order constraints
type ConstraintKind string

const (
	ConstraintColocation ConstraintKind = "colocation"
	ConstraintOrder      ConstraintKind = "order"
)

// Preference is the AND/OR semantics of a constraint placeholder
type Preference string

const (
	PreferenceAnd Preference = "AND"
	PreferenceOr  Preference = "OR"
)

// RequireAll maps the preference onto the require-all set attribute
func (p Preference) RequireAll() bool {
	return p != PreferenceOr
}

// ResourceSet is an ordered sequence of resource ids bound by one
// colocation or order constraint.
type ResourceSet struct {
	ID             string   `json:"id" yaml:"id"`
	RscIDs         []string `json:"rscIds,omitempty" yaml:"rscIds,omitempty"`
	Sequential     bool     `json:"sequential" yaml:"sequential"`
	RequireAll     bool     `json:"requireAll" yaml:"requireAll"`
	OrderAction    string   `json:"orderAction,omitempty" yaml:"orderAction,omitempty"`
	ColocationRole string   `json:"colocationRole,omitempty" yaml:"colocationRole,omitempty"`
}

// Copy returns a deep copy of s
func (s *ResourceSet) Copy() *ResourceSet {
	if s == nil {
		return nil
	}
	c := *s
	c.RscIDs = append([]string(nil), s.RscIDs...)
	return &c
}

// IsEmpty reports whether s is absent or has no members
func (s *ResourceSet) IsEmpty() bool {
	return s == nil || len(s.RscIDs) == 0
}

// Contains reports whether id is a member of s
func (s *ResourceSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.RscIDs {
		if r == id {
			return true
		}
	}
	return false
}

// IsSubsetOf reports whether every member of s is a member of other.
// Member order is ignored.
func (s *ResourceSet) IsSubsetOf(other *ResourceSet) bool {
	if s.IsEmpty() {
		return true
	}
	if other.IsEmpty() {
		return false
	}
	for _, id := range s.RscIDs {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Equals compares s and other structurally: same members in any order and
// the same set attributes. The set id is not compared.
func (s *ResourceSet) Equals(other *ResourceSet) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	if len(s.RscIDs) != len(other.RscIDs) {
		return false
	}
	return s.IsSubsetOf(other) && other.IsSubsetOf(s) &&
		s.Sequential == other.Sequential &&
		s.RequireAll == other.RequireAll &&
		s.OrderAction == other.OrderAction &&
		s.ColocationRole == other.ColocationRole
}

// WithMember returns a copy of s with id added, at the front when front is
// true and at the end otherwise. A member already present is not added
// twice. s itself is never modified.
func (s *ResourceSet) WithMember(id string, front bool) *ResourceSet {
	c := s.Copy()
	if c == nil {
		c = &ResourceSet{}
	}
	if c.Contains(id) {
		return c
	}
	if front {
		c.RscIDs = append([]string{id}, c.RscIDs...)
	} else {
		c.RscIDs = append(c.RscIDs, id)
	}
	return c
}

// ConnectionData pairs the two resource sets of one colocation or order
// constraint.
type ConnectionData struct {
	Set1          *ResourceSet `json:"set1,omitempty" yaml:"set1,omitempty"`
	Set2          *ResourceSet `json:"set2,omitempty" yaml:"set2,omitempty"`
	ConstraintID  string       `json:"constraintId" yaml:"constraintId"`
	ConnectionPos int          `json:"connectionPos" yaml:"connectionPos"`
	Colocation    bool         `json:"colocation" yaml:"colocation"`
}

// IsEmpty reports whether both sets are absent or empty. Empty connection
// data must be discarded rather than persisted.
func (d *ConnectionData) IsEmpty() bool {
	return d == nil || (d.Set1.IsEmpty() && d.Set2.IsEmpty())
}

// IsOneSided reports whether only set1 is present
func (d *ConnectionData) IsOneSided() bool {
	return d != nil && d.Set1 != nil && d.Set2 == nil
}

// IsTwoSided reports whether both sets are present
func (d *ConnectionData) IsTwoSided() bool {
	return d != nil && d.Set1 != nil && d.Set2 != nil
}

// Reverse swaps set1 and set2
func (d *ConnectionData) Reverse() {
	d.Set1, d.Set2 = d.Set2, d.Set1
}

// Kind returns the constraint kind of d
func (d *ConnectionData) Kind() ConstraintKind {
	if d.Colocation {
		return ConstraintColocation
	}
	return ConstraintOrder
}

// Copy returns a deep copy of d
func (d *ConnectionData) Copy() *ConnectionData {
	if d == nil {
		return nil
	}
	c := *d
	c.Set1 = d.Set1.Copy()
	c.Set2 = d.Set2.Copy()
	return &c
}

// PlaceholderState is the persisted state of a constraint placeholder
type PlaceholderState struct {
	ID          string          `json:"id" yaml:"id"`
	Preference  Preference      `json:"preference" yaml:"preference"`
	IsNew       bool            `json:"isNew" yaml:"isNew"`
	ColData     *ConnectionData `json:"colData,omitempty" yaml:"colData,omitempty"`
	OrdData     *ConnectionData `json:"ordData,omitempty" yaml:"ordData,omitempty"`
	ColID       string          `json:"colId,omitempty" yaml:"colId,omitempty"`
	OrdID       string          `json:"ordId,omitempty" yaml:"ordId,omitempty"`
	ReverseCol  bool            `json:"reverseCol" yaml:"reverseCol"`
	ReverseOrd  bool            `json:"reverseOrd" yaml:"reverseOrd"`
	ReversedCol bool            `json:"reversedCol" yaml:"reversedCol"`
	ReversedOrd bool            `json:"reversedOrd" yaml:"reversedOrd"`
}

// JournalRecord is one committed batch of CRM commands
type JournalRecord struct {
	ID        string    `json:"id"`
	Host      string    `json:"host"`
	Operation string    `json:"operation"`
	TestOnly  bool      `json:"testOnly"`
	Commands  []string  `json:"commands"`
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
