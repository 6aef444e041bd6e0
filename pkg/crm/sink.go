package crm

import (
	"context"
	"errors"

	"github.com/rasto/lcmc-sub002/pkg/types"
)

var (
	// ErrCommandFailed is returned when a CRM command exits non-zero
	ErrCommandFailed = errors.New("crm command failed")
	// ErrEmptyRequest is returned for requests with nothing to apply
	ErrEmptyRequest = errors.New("empty crm request")
)

// Score attribute values
const (
	ScoreInfinity = "INFINITY"
	AttrScore     = "score"
)

// CommandSink issues CRM commands. With TestOnly set a request is applied
// to a shadow CIB and simulated instead of being committed.
type CommandSink interface {
	SetRscSet(ctx context.Context, req *SetRscSetRequest) error
	ReplaceGroup(ctx context.Context, req *ReplaceGroupRequest) error
	SetOrderAndColocation(ctx context.Context, req *OrderAndColocationRequest) error
	RemoveOrder(ctx context.Context, host, ordID string, testOnly bool) error
	RemoveColocation(ctx context.Context, host, colID string, testOnly bool) error
	RemoveResource(ctx context.Context, host string, rsc *types.Resource, testOnly bool) error
}

// SetRscSetRequest creates or updates a colocation and/or an order
// constraint made of resource sets.
type SetRscSetRequest struct {
	Host      string
	ColID     string
	CreateCol bool
	OrdID     string
	CreateOrd bool
	ColSets   []*types.ResourceSet
	OrdSets   []*types.ResourceSet
	Attrs     map[string]string
	TestOnly  bool
}

// ReplaceGroupRequest replaces a whole group, optionally wrapped in a clone,
// in one command. Element ids known to the cluster are reused.
type ReplaceGroupRequest struct {
	Host             string
	CreateGroup      bool
	GroupID          string
	GroupMetaAttrs   map[string]string
	GroupMetaAttrsID string
	Members          []GroupMember
	Clone            *CloneSpec
	TestOnly         bool
}

// GroupMember is the CRM state of one group child
type GroupMember struct {
	ID              string
	Class           string
	Provider        string
	Type            string
	InstanceAttrID  string
	NvpairIDs       map[string]string
	Params          map[string]string
	MetaAttrs       map[string]string
	MetaAttrsID     string
	MetaAttrsRefID  string
	OperationsID    string
	Operations      map[string]map[string]string
	OperationIDs    map[string]string
	OperationsRefID string
}

// CloneSpec is the clone wrapping a replaced group
type CloneSpec struct {
	ID             string
	Master         bool
	MetaAttrs      map[string]string
	MetaAttrsID    string
	MetaAttrsRefID string
}

// OrderAndColocationRequest creates a plain colocation and order pair
// between two resources.
type OrderAndColocationRequest struct {
	Host           string
	ColID          string
	OrdID          string
	Rsc            string // dependent resource
	WithRsc        string
	RscRole        string
	WithRscRole    string
	FirstAction    string
	ThenAction     string
	Score          string
	SkipColocation bool
	SkipOrder      bool
	TestOnly       bool
}
