package composite

import (
	"context"
	"errors"
	"fmt"

	"github.com/rasto/lcmc-sub002/pkg/crm"
	"github.com/rasto/lcmc-sub002/pkg/editable"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/rs/zerolog"
)

var (
	// ErrMasterImmutable is returned when the master/slave flag of a
	// committed clone is changed
	ErrMasterImmutable = errors.New("master/slave flag of a committed clone cannot change")
	// ErrNotGroup is returned when a group operation gets another kind
	ErrNotGroup = errors.New("resource is not a group")
	// ErrNotClone is returned when a clone operation gets another kind
	ErrNotClone = errors.New("resource is not a clone")
)

const (
	// GroupOrderedMetaAttr is the group parameter that maps onto the CRM
	// "ordered" meta attribute
	GroupOrderedMetaAttr = "group-ordered"
	OrderedMetaAttr      = "ordered"

	// ParamID is the parameter holding the resource id itself
	ParamID = "id"

	RoleMaster     = "Master"
	ActionPromote  = "promote"
	ActionStart    = "start"
	defaultColPref = "col"
	defaultOrdPref = "ord"
)

// Config holds the parameter definitions of groups and clones
type Config struct {
	GroupParams []editable.ParamSpec
	CloneParams []editable.ParamSpec
}

// Coordinator applies groups and clones as a whole and removes them with
// their children.
type Coordinator struct {
	config Config
	status status.Source
	sink   crm.CommandSink
	logger zerolog.Logger
}

// NewCoordinator creates a coordinator
func NewCoordinator(cfg Config, src status.Source, sink crm.CommandSink) *Coordinator {
	return &Coordinator{
		config: cfg,
		status: src,
		sink:   sink,
		logger: log.WithComponent("composite"),
	}
}

// view returns the current status, or an empty one that reports every
// entry as unknown.
func (c *Coordinator) view() status.View {
	if v := c.status.View(); v != nil {
		return v
	}
	return (*status.Snapshot)(nil)
}

// GroupMetaAttrs returns the group meta attributes to send to the CRM:
// every non-default parameter except the id, with GroupOrderedMetaAttr
// renamed to "ordered".
func (c *Coordinator) GroupMetaAttrs(group *types.Resource) map[string]string {
	meta := editable.NonDefault(group, c.config.GroupParams, ParamID)
	for k, v := range group.MetaAttrs {
		meta[k] = v
	}
	if v, ok := meta[GroupOrderedMetaAttr]; ok {
		delete(meta, GroupOrderedMetaAttr)
		meta[OrderedMetaAttr] = v
	}
	return meta
}

func (c *Coordinator) member(view status.View, child *types.Resource) crm.GroupMember {
	ops := child.Operations
	if ops == nil {
		ops = view.Operations(child.ID)
	}
	return crm.GroupMember{
		ID:              child.ID,
		Class:           child.Class,
		Provider:        child.Provider,
		Type:            child.Type,
		InstanceAttrID:  view.ResourceInstanceAttrID(child.ID),
		NvpairIDs:       view.ParametersNvpairsIDs(child.ID),
		Params:          copyMap(child.Params),
		MetaAttrs:       copyMap(child.MetaAttrs),
		MetaAttrsID:     view.MetaAttrsID(child.ID),
		MetaAttrsRefID:  view.MetaAttrsRefID(child.ID),
		OperationsID:    view.OperationsID(child.ID),
		Operations:      ops,
		OperationIDs:    view.OperationIDs(child.ID),
		OperationsRefID: view.OperationsRefID(child.ID),
	}
}

func (c *Coordinator) cloneSpec(view status.View, clone *types.Resource) *crm.CloneSpec {
	meta := editable.NonDefault(clone, c.config.CloneParams, ParamID)
	for k, v := range clone.MetaAttrs {
		meta[k] = v
	}
	return &crm.CloneSpec{
		ID:             clone.ID,
		Master:         clone.IsMaster,
		MetaAttrs:      meta,
		MetaAttrsID:    view.MetaAttrsID(clone.ID),
		MetaAttrsRefID: view.MetaAttrsRefID(clone.ID),
	}
}

// ApplyWhole replaces group, wrapped in clone when clone is not nil, with
// one CRM command. newOrder is the authoritative child order; ids that are
// not children of group are skipped. On success the current parameter
// values of the group, its children and the clone become the committed
// baseline and their new flags are cleared. Nothing is stored when the
// command fails or testOnly is set.
func (c *Coordinator) ApplyWhole(ctx context.Context, dcHost string, group, clone *types.Resource, createGroup bool, newOrder []string, testOnly bool) error {
	if group == nil || group.Kind != types.ResourceKindGroup {
		return ErrNotGroup
	}
	if clone != nil && clone.Kind != types.ResourceKindClone {
		return ErrNotClone
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ApplyDuration, "apply_whole")

	logger := c.logger.With().Str("group_id", group.ID).Logger()
	view := c.view()

	req := &crm.ReplaceGroupRequest{
		Host:             dcHost,
		CreateGroup:      createGroup,
		GroupID:          group.ID,
		GroupMetaAttrs:   c.GroupMetaAttrs(group),
		GroupMetaAttrsID: view.MetaAttrsID(group.ID),
		TestOnly:         testOnly,
	}
	ordered := make([]*types.Resource, 0, len(newOrder))
	seen := make(map[string]bool, len(newOrder))
	for _, id := range newOrder {
		child := group.Child(id)
		if child == nil {
			logger.Warn().Str("resource_id", id).Msg("Skipping unknown group child")
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, child)
		req.Members = append(req.Members, c.member(view, child))
	}
	if clone != nil {
		req.Clone = c.cloneSpec(view, clone)
	}

	if err := c.sink.ReplaceGroup(ctx, req); err != nil {
		return fmt.Errorf("failed to apply group %s: %w", group.ID, err)
	}
	if testOnly {
		return nil
	}

	// newOrder wins; children it does not name keep their relative order
	for _, child := range group.Children {
		if !seen[child.ID] {
			ordered = append(ordered, child)
		}
	}
	group.Children = ordered

	editable.ForResource(group, c.config.GroupParams, nil).Store()
	group.IsNew = false
	for _, child := range group.Children {
		storeAll(child)
		child.IsNew = false
	}
	if clone != nil {
		editable.ForResource(clone, c.config.CloneParams, nil).Store()
		clone.IsNew = false
		clone.Contained = group
	}

	logger.Info().
		Bool("create", createGroup).
		Int("members", len(req.Members)).
		Bool("clone", clone != nil).
		Msg("Group applied")
	return nil
}

// RemoveGroup removes the constraints of every child, then the group
// itself. Group and children are only marked removed; they are purged once
// the cluster no longer reports them. A new group has nothing committed
// and is marked removed without CRM commands.
func (c *Coordinator) RemoveGroup(ctx context.Context, dcHost string, group *types.Resource, testOnly bool) error {
	if group == nil || group.Kind != types.ResourceKindGroup {
		return ErrNotGroup
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ApplyDuration, "remove_group")

	if group.IsNew {
		if !testOnly {
			markRemoved(group)
		}
		return nil
	}

	view := c.view()
	done := make(map[string]bool)
	for _, child := range group.Children {
		if err := c.removeConstraints(ctx, view, dcHost, child.ID, done, testOnly); err != nil {
			return err
		}
	}
	if err := c.sink.RemoveResource(ctx, dcHost, group, testOnly); err != nil {
		return fmt.Errorf("failed to remove group %s: %w", group.ID, err)
	}
	if !testOnly {
		markRemoved(group)
	}
	c.logger.Info().Str("group_id", group.ID).Bool("test_only", testOnly).Msg("Group removed")
	return nil
}

// RemoveClone removes a clone. Removal cascades to the contained resource
// only while the clone is new; a committed clone is deleted in the CRM and
// its contained resource is purged when the cluster confirms.
func (c *Coordinator) RemoveClone(ctx context.Context, dcHost string, clone *types.Resource, testOnly bool) error {
	if clone == nil || clone.Kind != types.ResourceKindClone {
		return ErrNotClone
	}
	if clone.IsNew {
		if !testOnly {
			markRemoved(clone)
		}
		return nil
	}

	if err := c.removeConstraints(ctx, c.view(), dcHost, clone.ID, map[string]bool{}, testOnly); err != nil {
		return err
	}
	if err := c.sink.RemoveResource(ctx, dcHost, clone, testOnly); err != nil {
		return fmt.Errorf("failed to remove clone %s: %w", clone.ID, err)
	}
	if !testOnly {
		clone.IsRemoved = true
	}
	return nil
}

// removeConstraints removes the constraints referencing rscID, skipping
// the ones in done. A constraint shared by several resources is removed
// once.
func (c *Coordinator) removeConstraints(ctx context.Context, view status.View, dcHost, rscID string, done map[string]bool, testOnly bool) error {
	for _, id := range view.ColocationIDs(rscID) {
		if done["col:"+id] {
			continue
		}
		done["col:"+id] = true
		if err := c.sink.RemoveColocation(ctx, dcHost, id, testOnly); err != nil {
			return fmt.Errorf("failed to remove colocation %s of %s: %w", id, rscID, err)
		}
	}
	for _, id := range view.OrderIDs(rscID) {
		if done["ord:"+id] {
			continue
		}
		done["ord:"+id] = true
		if err := c.sink.RemoveOrder(ctx, dcHost, id, testOnly); err != nil {
			return fmt.Errorf("failed to remove order %s of %s: %w", id, rscID, err)
		}
	}
	return nil
}

// SetMaster changes the master/slave flag of a clone. Only a clone that
// was not committed yet can change it.
func SetMaster(clone *types.Resource, master bool) error {
	if clone == nil || clone.Kind != types.ResourceKindClone {
		return ErrNotClone
	}
	if clone.IsMaster == master {
		return nil
	}
	if !clone.IsNew {
		return ErrMasterImmutable
	}
	clone.IsMaster = master
	return nil
}

// ConstraintDefaults returns a colocation and order pair placing rsc with
// and after withRsc. A master/slave clone on either side is referred to in
// its Master role and promoted instead of started.
func ConstraintDefaults(rsc, withRsc *types.Resource) *crm.OrderAndColocationRequest {
	req := &crm.OrderAndColocationRequest{
		ColID:       fmt.Sprintf("%s-%s-%s", defaultColPref, rsc.ID, withRsc.ID),
		OrdID:       fmt.Sprintf("%s-%s-%s", defaultOrdPref, withRsc.ID, rsc.ID),
		Rsc:         rsc.ID,
		WithRsc:     withRsc.ID,
		FirstAction: ActionStart,
		ThenAction:  ActionStart,
		Score:       crm.ScoreInfinity,
	}
	if isMasterClone(withRsc) {
		req.WithRscRole = RoleMaster
		req.FirstAction = ActionPromote
	}
	if isMasterClone(rsc) {
		req.RscRole = RoleMaster
		req.ThenAction = ActionPromote
	}
	return req
}

// Connect creates the default colocation and order between rsc and
// withRsc.
func (c *Coordinator) Connect(ctx context.Context, dcHost string, rsc, withRsc *types.Resource, testOnly bool) error {
	req := ConstraintDefaults(rsc, withRsc)
	req.Host = dcHost
	req.TestOnly = testOnly
	if err := c.sink.SetOrderAndColocation(ctx, req); err != nil {
		return fmt.Errorf("failed to connect %s with %s: %w", rsc.ID, withRsc.ID, err)
	}
	return nil
}

func isMasterClone(r *types.Resource) bool {
	return r != nil && r.Kind == types.ResourceKindClone && r.IsMaster
}

// storeAll commits the current parameters of r
func storeAll(r *types.Resource) {
	for k, v := range r.Params {
		r.StoreValue(k, v)
	}
}

func markRemoved(r *types.Resource) {
	r.IsRemoved = true
	for _, m := range r.Members() {
		markRemoved(m)
	}
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
