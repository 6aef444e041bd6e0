package placeholder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rasto/lcmc-sub002/pkg/crm"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/rs/zerolog"
)

const (
	colocationPrefix = "c"
	orderPrefix      = "o"

	// Roles and actions given to a master clone on a fresh set side
	RoleMaster    = "Master"
	ActionPromote = "promote"
)

var trailingNumber = regexp.MustCompile(`(\d+)$`)

// Placeholder is an AND/OR junction in the constraint graph. Resources
// connected to it are rendered as resource sets of one colocation and one
// order constraint: the "from" side lands in set1 and the rest in set2.
//
// A Placeholder does no locking. Callers serialize access with the
// cluster status lock.
type Placeholder struct {
	id         string
	number     int
	preference types.Preference
	isNew      bool

	colData *types.ConnectionData
	ordData *types.ConnectionData

	// submitted but not yet reported back by a status refresh
	pendingCol *types.ConnectionData
	pendingOrd *types.ConnectionData

	reverseCol  bool
	reverseOrd  bool
	reversedCol bool
	reversedOrd bool

	status status.Source
	sink   crm.CommandSink
	logger zerolog.Logger
}

// New creates a placeholder that has not been committed to the cluster yet
func New(id string, pref types.Preference, src status.Source, sink crm.CommandSink) *Placeholder {
	if pref == "" {
		pref = types.PreferenceAnd
	}
	p := &Placeholder{
		id:         id,
		preference: pref,
		isNew:      true,
		status:     src,
		sink:       sink,
		logger:     log.WithPlaceholderID(id),
	}
	if m := trailingNumber.FindStringSubmatch(id); m != nil {
		p.number, _ = strconv.Atoi(m[1])
	}
	return p
}

// FromState restores a placeholder from its persisted state
func FromState(st *types.PlaceholderState, src status.Source, sink crm.CommandSink) *Placeholder {
	p := New(st.ID, st.Preference, src, sink)
	p.isNew = st.IsNew
	p.colData = st.ColData.Copy()
	p.ordData = st.OrdData.Copy()
	if st.ColID != "" && p.colData == nil {
		p.pendingCol = &types.ConnectionData{ConstraintID: st.ColID, Colocation: true}
	}
	if st.OrdID != "" && p.ordData == nil {
		p.pendingOrd = &types.ConnectionData{ConstraintID: st.OrdID}
	}
	p.reverseCol = st.ReverseCol
	p.reverseOrd = st.ReverseOrd
	p.reversedCol = st.ReversedCol
	p.reversedOrd = st.ReversedOrd
	return p
}

// State returns a persistable copy of the placeholder state
func (p *Placeholder) State() *types.PlaceholderState {
	st := &types.PlaceholderState{
		ID:          p.id,
		Preference:  p.preference,
		IsNew:       p.isNew,
		ColData:     p.colData.Copy(),
		OrdData:     p.ordData.Copy(),
		ReverseCol:  p.reverseCol,
		ReverseOrd:  p.reverseOrd,
		ReversedCol: p.reversedCol,
		ReversedOrd: p.reversedOrd,
	}
	if p.pendingCol != nil {
		st.ColID = p.pendingCol.ConstraintID
	}
	if p.pendingOrd != nil {
		st.OrdID = p.pendingOrd.ConstraintID
	}
	return st
}

func (p *Placeholder) ID() string                   { return p.id }
func (p *Placeholder) Preference() types.Preference { return p.preference }
func (p *Placeholder) IsNew() bool                  { return p.isNew }

// SetPreference changes the AND/OR semantics used for sets created from
// now on. Existing sets keep their require-all attribute.
func (p *Placeholder) SetPreference(pref types.Preference) {
	p.preference = pref
}

// ColocationData returns a copy of the colocation connection data
func (p *Placeholder) ColocationData() *types.ConnectionData { return p.colData.Copy() }

// OrderData returns a copy of the order connection data
func (p *Placeholder) OrderData() *types.ConnectionData { return p.ordData.Copy() }

// Reversed reports whether the stored connection data of kind was reversed
func (p *Placeholder) Reversed(kind types.ConstraintKind) bool {
	if kind == types.ConstraintColocation {
		return p.reversedCol
	}
	return p.reversedOrd
}

// PendingReverse reports whether the next one-sided refresh of kind will
// be reversed.
func (p *Placeholder) PendingReverse(kind types.ConstraintKind) bool {
	if kind == types.ConstraintColocation {
		return p.reverseCol
	}
	return p.reverseOrd
}

// Sets are the resource sets computed by AddConstraintWithPlaceholder
type Sets struct {
	ColSet2 *types.ResourceSet `yaml:"colSet2,omitempty"`
	ColSet1 *types.ResourceSet `yaml:"colSet1,omitempty"`
	OrdSet1 *types.ResourceSet `yaml:"ordSet1,omitempty"`
	OrdSet2 *types.ResourceSet `yaml:"ordSet2,omitempty"`

	ColID     string `yaml:"colId,omitempty"`
	CreateCol bool   `yaml:"createCol"`
	OrdID     string `yaml:"ordId,omitempty"`
	CreateOrd bool   `yaml:"createOrd"`
}

// List returns the sets in submission order: colocation set2, colocation
// set1, order set1, order set2.
func (s *Sets) List() []*types.ResourceSet {
	return []*types.ResourceSet{s.ColSet2, s.ColSet1, s.OrdSet1, s.OrdSet2}
}

// side accumulates one constraint kind during AddConstraintWithPlaceholder
type side struct {
	kind   types.ConstraintKind
	id     string
	create bool
	set1   *types.ResourceSet
	set2   *types.ResourceSet
}

func (p *Placeholder) data(kind types.ConstraintKind) *types.ConnectionData {
	if kind == types.ConstraintColocation {
		if p.colData != nil {
			return p.colData
		}
		return p.pendingCol
	}
	if p.ordData != nil {
		return p.ordData
	}
	return p.pendingOrd
}

func liveSets(view status.View, kind types.ConstraintKind, id string) []*types.ResourceSet {
	if kind == types.ConstraintColocation {
		return view.RscSetsCol(id)
	}
	return view.RscSetsOrd(id)
}

// nextID allocates a constraint id that the cluster does not know yet,
// starting from the placeholder number.
func (p *Placeholder) nextID(view status.View, kind types.ConstraintKind) string {
	prefix := orderPrefix
	if kind == types.ConstraintColocation {
		prefix = colocationPrefix
	}
	for n := p.number; ; n++ {
		id := prefix + strconv.Itoa(n)
		if liveSets(view, kind, id) == nil {
			return id
		}
	}
}

// emptySet is a set side without members. The from side always requires
// all of its members, the other side follows the placeholder preference.
func (p *Placeholder) emptySet(id string, from bool) *types.ResourceSet {
	rs := &types.ResourceSet{ID: id, RequireAll: true}
	if !from {
		rs.RequireAll = p.preference.RequireAll()
	}
	return rs
}

// matchLive returns a copy of the live set structurally equal to existing.
// When the cluster reports no such set, a copy of existing is used.
func matchLive(live []*types.ResourceSet, existing *types.ResourceSet) *types.ResourceSet {
	if existing == nil {
		return nil
	}
	for _, rs := range live {
		if rs.Equals(existing) {
			return rs.Copy()
		}
	}
	return existing.Copy()
}

func (p *Placeholder) startSide(view status.View, kind types.ConstraintKind) *side {
	s := &side{kind: kind}
	existing := p.data(kind)
	if existing == nil || existing.ConstraintID == "" {
		s.id = p.nextID(view, kind)
		s.create = true
		s.set1 = p.emptySet(s.id, true)
		s.set2 = p.emptySet(s.id, false)
		return s
	}

	s.id = existing.ConstraintID
	live := liveSets(view, kind, s.id)
	s.set1 = matchLive(live, existing.Set1)
	s.set2 = matchLive(live, existing.Set2)
	if s.set1 == nil {
		s.set1 = p.emptySet(s.id, true)
	}
	if s.set2 == nil {
		s.set2 = p.emptySet(s.id, false)
	}
	return s
}

func (s *side) add(r *types.Resource, from bool) {
	target := &s.set2
	if from {
		target = &s.set1
	}
	wasEmpty := (*target).IsEmpty()
	// colocation sets list dependents first
	*target = (*target).WithMember(r.ID, s.kind == types.ConstraintColocation)
	if wasEmpty && r.Kind == types.ResourceKindClone && r.IsMaster {
		if s.kind == types.ConstraintColocation {
			(*target).ColocationRole = RoleMaster
		} else {
			(*target).OrderAction = ActionPromote
		}
	}
}

// AddConstraintWithPlaceholder computes the resource sets that connect
// servicesAll to the placeholder. Resources also listed in servicesFrom
// go to set1, the rest to set2. With force the sets are submitted to the
// CRM on dcHost; testOnly makes that submission a simulation.
//
// Sets obtained from the cluster status are never modified in place. A
// nil result with a nil error means the cluster status is not available.
func (p *Placeholder) AddConstraintWithPlaceholder(ctx context.Context, servicesAll, servicesFrom []*types.Resource, doCol, doOrd bool, dcHost string, force, testOnly bool) (*Sets, error) {
	view := p.status.View()
	if view == nil {
		p.logger.Warn().Msg("No cluster status, skipping placeholder constraint")
		return nil, nil
	}

	from := make(map[string]bool, len(servicesFrom))
	for _, r := range servicesFrom {
		from[r.ID] = true
	}
	if len(servicesFrom) == 0 && !testOnly {
		// status will report these sets one-sided on the wrong side
		if doCol {
			p.reverseCol = true
		}
		if doOrd {
			p.reverseOrd = true
		}
	}

	var col, ord *side
	if doCol {
		col = p.startSide(view, types.ConstraintColocation)
	}
	if doOrd {
		ord = p.startSide(view, types.ConstraintOrder)
	}
	for _, r := range servicesAll {
		if r == nil {
			continue
		}
		if col != nil {
			col.add(r, from[r.ID])
		}
		if ord != nil {
			ord.add(r, from[r.ID])
		}
	}

	out := &Sets{}
	if col != nil {
		out.ColSet1, out.ColSet2 = col.set1, col.set2
		out.ColID, out.CreateCol = col.id, col.create
	}
	if ord != nil {
		out.OrdSet1, out.OrdSet2 = ord.set1, ord.set2
		out.OrdID, out.CreateOrd = ord.id, ord.create
	}

	if !force {
		return out, nil
	}
	if err := p.submit(ctx, out, dcHost, testOnly); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Placeholder) submit(ctx context.Context, out *Sets, dcHost string, testOnly bool) error {
	req := &crm.SetRscSetRequest{
		Host:     dcHost,
		Attrs:    map[string]string{crm.AttrScore: crm.ScoreInfinity},
		TestOnly: testOnly,
	}
	if out.ColID != "" {
		req.ColID, req.CreateCol = out.ColID, out.CreateCol
		req.ColSets = []*types.ResourceSet{out.ColSet2, out.ColSet1}
	}
	if out.OrdID != "" {
		req.OrdID, req.CreateOrd = out.OrdID, out.CreateOrd
		req.OrdSets = []*types.ResourceSet{out.OrdSet1, out.OrdSet2}
	}

	metrics.RscSetSubmissions.WithLabelValues(strconv.FormatBool(testOnly)).Inc()
	if err := p.sink.SetRscSet(ctx, req); err != nil {
		return fmt.Errorf("placeholder %s: %w", p.id, err)
	}
	if testOnly {
		return nil
	}

	p.isNew = false
	if out.ColID != "" {
		p.pendingCol = &types.ConnectionData{
			Set1: out.ColSet1.Copy(), Set2: out.ColSet2.Copy(),
			ConstraintID: out.ColID, Colocation: true,
		}
	}
	if out.OrdID != "" {
		p.pendingOrd = &types.ConnectionData{
			Set1: out.OrdSet1.Copy(), Set2: out.OrdSet2.Copy(),
			ConstraintID: out.OrdID,
		}
	}
	p.logger.Info().
		Str("colocation", out.ColID).
		Str("order", out.OrdID).
		Msg("Placeholder constraints submitted")
	return nil
}

// SetRscSetConnectionData stores connection data reported by a cluster
// status refresh. One-sided data is reversed when a reversal is pending
// from a submission without "from" resources, or when its set1 matches
// the set2 side of the data already stored.
func (p *Placeholder) SetRscSetConnectionData(d *types.ConnectionData) {
	if d == nil {
		return
	}
	d = d.Copy()
	kind := d.Kind()

	existing, pending := p.ordData, p.reverseOrd
	if kind == types.ConstraintColocation {
		existing, pending = p.colData, p.reverseCol
	}

	reason := ""
	switch {
	case pending && d.IsOneSided():
		reason = "pending"
		pending = false
	case d.IsOneSided() && existing != nil && existing.Set2 != nil &&
		(d.Set1.IsSubsetOf(existing.Set2) || existing.Set2.IsSubsetOf(d.Set1)):
		reason = "subset"
	}
	reversed := reason != ""
	if reversed {
		d.Reverse()
	}
	if reversed && !p.Reversed(kind) {
		metrics.PlaceholderReversals.WithLabelValues(string(kind), reason).Inc()
		p.logger.Debug().
			Str("kind", string(kind)).
			Str("constraint_id", d.ConstraintID).
			Str("reason", reason).
			Msg("Connection data reversed")
	}

	if kind == types.ConstraintColocation {
		p.colData, p.reverseCol, p.reversedCol = d, pending, reversed
		if p.pendingCol != nil && p.pendingCol.ConstraintID == d.ConstraintID {
			p.pendingCol = nil
		}
	} else {
		p.ordData, p.reverseOrd, p.reversedOrd = d, pending, reversed
		if p.pendingOrd != nil && p.pendingOrd.ConstraintID == d.ConstraintID {
			p.pendingOrd = nil
		}
	}
	p.isNew = false
}

// ResetRscSetConnectionData drops connection data whose sets are all empty
func (p *Placeholder) ResetRscSetConnectionData() {
	if p.colData.IsEmpty() {
		p.colData = nil
	}
	if p.ordData.IsEmpty() {
		p.ordData = nil
	}
}

// DropVanishedConnectionData clears stored connection data whose
// constraint is missing from reported, the set of constraint ids in the
// current cluster status. Data resubmitted and still pending is kept. It
// reports whether anything was cleared.
func (p *Placeholder) DropVanishedConnectionData(reported map[string]bool) bool {
	dropped := false
	if vanished(p.colData, p.pendingCol, reported) {
		p.colData, p.reversedCol = nil, false
		dropped = true
	}
	if vanished(p.ordData, p.pendingOrd, reported) {
		p.ordData, p.reversedOrd = nil, false
		dropped = true
	}
	return dropped
}

func vanished(d, pending *types.ConnectionData, reported map[string]bool) bool {
	if d == nil || reported[d.ConstraintID] {
		return false
	}
	return pending == nil || pending.ConstraintID != d.ConstraintID
}

// SameConstraintID reports whether d belongs to the colocation or order
// constraint of this placeholder, including one submitted but not yet
// reported by the cluster.
func (p *Placeholder) SameConstraintID(d *types.ConnectionData) bool {
	if d == nil || d.ConstraintID == "" {
		return false
	}
	for _, own := range []*types.ConnectionData{p.colData, p.ordData, p.pendingCol, p.pendingOrd} {
		if own != nil && own.Colocation == d.Colocation && own.ConstraintID == d.ConstraintID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the placeholder has no stored connection data
func (p *Placeholder) IsEmpty() bool {
	return p.colData.IsEmpty() && p.ordData.IsEmpty()
}

// sequence is the connection data used for traversal: order when known,
// colocation otherwise.
func (p *Placeholder) sequence() *types.ConnectionData {
	if !p.ordData.IsEmpty() {
		return p.ordData
	}
	return p.colData
}

// NextInSequence returns the resources following rscID through this
// placeholder: the next member of a sequential set, or the set2 side when
// rscID is on the set1 side.
func (p *Placeholder) NextInSequence(rscID string) []string {
	d := p.sequence()
	if d.IsEmpty() {
		return nil
	}
	for _, rs := range []*types.ResourceSet{d.Set1, d.Set2} {
		if rs == nil || !rs.Sequential {
			continue
		}
		for i, id := range rs.RscIDs {
			if id == rscID && i+1 < len(rs.RscIDs) {
				return []string{rs.RscIDs[i+1]}
			}
		}
	}
	if d.Set1.Contains(rscID) && !d.Set2.IsEmpty() {
		return append([]string(nil), d.Set2.RscIDs...)
	}
	return nil
}

// PrevInSequence is the inverse of NextInSequence
func (p *Placeholder) PrevInSequence(rscID string) []string {
	d := p.sequence()
	if d.IsEmpty() {
		return nil
	}
	for _, rs := range []*types.ResourceSet{d.Set1, d.Set2} {
		if rs == nil || !rs.Sequential {
			continue
		}
		for i, id := range rs.RscIDs {
			if id == rscID && i > 0 {
				return []string{rs.RscIDs[i-1]}
			}
		}
	}
	if d.Set2.Contains(rscID) && !d.Set1.IsEmpty() {
		return append([]string(nil), d.Set1.RscIDs...)
	}
	return nil
}
