package status

import (
	"github.com/rasto/lcmc-sub002/pkg/types"
)

// View is a read-only cluster status snapshot. Every query returns nil or ""
// when the entry is unknown or not yet present.
type View interface {
	RscSetsCol(id string) []*types.ResourceSet
	RscSetsOrd(id string) []*types.ResourceSet
	ConnectionData() []*types.ConnectionData
	GroupResources(groupID string) []string
	HasResource(rscID string) bool

	ResourceInstanceAttrID(rscID string) string
	ParametersNvpairsIDs(rscID string) map[string]string
	OperationsID(rscID string) string
	Operations(rscID string) map[string]map[string]string
	OperationIDs(rscID string) map[string]string
	MetaAttrsID(rscID string) string
	MetaAttrsRefID(rscID string) string
	OperationsRefID(rscID string) string

	ColocationIDs(rscID string) []string
	OrderIDs(rscID string) []string
}

// Source supplies the current View. View returns nil before the first
// refresh.
type Source interface {
	View() View
}

// ResourceStatus is what the CIB reports about one resource
type ResourceStatus struct {
	InstanceAttrID  string                       `json:"instanceAttrId,omitempty" yaml:"instanceAttrId,omitempty"`
	NvpairIDs       map[string]string            `json:"nvpairIds,omitempty" yaml:"nvpairIds,omitempty"`
	OperationsID    string                       `json:"operationsId,omitempty" yaml:"operationsId,omitempty"`
	Operations      map[string]map[string]string `json:"operations,omitempty" yaml:"operations,omitempty"`
	OperationIDs    map[string]string            `json:"operationIds,omitempty" yaml:"operationIds,omitempty"`
	MetaAttrsID     string                       `json:"metaAttrsId,omitempty" yaml:"metaAttrsId,omitempty"`
	MetaAttrsRefID  string                       `json:"metaAttrsRefId,omitempty" yaml:"metaAttrsRefId,omitempty"`
	OperationsRefID string                       `json:"operationsRefId,omitempty" yaml:"operationsRefId,omitempty"`
	Colocations     []string                     `json:"colocations,omitempty" yaml:"colocations,omitempty"`
	Orders          []string                     `json:"orders,omitempty" yaml:"orders,omitempty"`
}
