package status

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rasto/lcmc-sub002/pkg/types"
	"gopkg.in/yaml.v3"
)

// Snapshot is one parsed cluster status. A snapshot is never modified
// after it was handed to a Holder; all accessors return copies.
type Snapshot struct {
	DCHost         string                          `json:"dcHost,omitempty" yaml:"dcHost,omitempty"`
	ColocationSets map[string][]*types.ResourceSet `json:"colocationSets,omitempty" yaml:"colocationSets,omitempty"`
	OrderSets      map[string][]*types.ResourceSet `json:"orderSets,omitempty" yaml:"orderSets,omitempty"`
	Connections    []*types.ConnectionData         `json:"connections,omitempty" yaml:"connections,omitempty"`
	Groups         map[string][]string             `json:"groups,omitempty" yaml:"groups,omitempty"`
	Resources      map[string]*ResourceStatus      `json:"resources,omitempty" yaml:"resources,omitempty"`
}

var _ View = (*Snapshot)(nil)

// ParseSnapshot decodes a YAML (or JSON) cluster status document
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse cluster status: %w", err)
	}
	return &s, nil
}

// LoadSnapshot reads a cluster status document from path
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster status: %w", err)
	}
	return ParseSnapshot(data)
}

// Clone returns a deep copy of s
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var c Snapshot
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

func copySets(sets []*types.ResourceSet) []*types.ResourceSet {
	if sets == nil {
		return nil
	}
	out := make([]*types.ResourceSet, 0, len(sets))
	for _, set := range sets {
		out = append(out, set.Copy())
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
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

func (s *Snapshot) resource(rscID string) *ResourceStatus {
	if s == nil || s.Resources == nil {
		return nil
	}
	return s.Resources[rscID]
}

func (s *Snapshot) RscSetsCol(id string) []*types.ResourceSet {
	if s == nil {
		return nil
	}
	return copySets(s.ColocationSets[id])
}

func (s *Snapshot) RscSetsOrd(id string) []*types.ResourceSet {
	if s == nil {
		return nil
	}
	return copySets(s.OrderSets[id])
}

func (s *Snapshot) ConnectionData() []*types.ConnectionData {
	if s == nil {
		return nil
	}
	out := make([]*types.ConnectionData, 0, len(s.Connections))
	for _, d := range s.Connections {
		out = append(out, d.Copy())
	}
	return out
}

func (s *Snapshot) GroupResources(groupID string) []string {
	if s == nil {
		return nil
	}
	return copyStrings(s.Groups[groupID])
}

func (s *Snapshot) HasResource(rscID string) bool {
	if s.resource(rscID) != nil {
		return true
	}
	if s == nil {
		return false
	}
	for _, children := range s.Groups {
		for _, c := range children {
			if c == rscID {
				return true
			}
		}
	}
	_, isGroup := s.Groups[rscID]
	return isGroup
}

func (s *Snapshot) ResourceInstanceAttrID(rscID string) string {
	if r := s.resource(rscID); r != nil {
		return r.InstanceAttrID
	}
	return ""
}

func (s *Snapshot) ParametersNvpairsIDs(rscID string) map[string]string {
	if r := s.resource(rscID); r != nil {
		return copyMap(r.NvpairIDs)
	}
	return nil
}

func (s *Snapshot) OperationsID(rscID string) string {
	if r := s.resource(rscID); r != nil {
		return r.OperationsID
	}
	return ""
}

func (s *Snapshot) Operations(rscID string) map[string]map[string]string {
	r := s.resource(rscID)
	if r == nil || r.Operations == nil {
		return nil
	}
	out := make(map[string]map[string]string, len(r.Operations))
	for op, attrs := range r.Operations {
		out[op] = copyMap(attrs)
	}
	return out
}

func (s *Snapshot) OperationIDs(rscID string) map[string]string {
	if r := s.resource(rscID); r != nil {
		return copyMap(r.OperationIDs)
	}
	return nil
}

func (s *Snapshot) MetaAttrsID(rscID string) string {
	if r := s.resource(rscID); r != nil {
		return r.MetaAttrsID
	}
	return ""
}

func (s *Snapshot) MetaAttrsRefID(rscID string) string {
	if r := s.resource(rscID); r != nil {
		return r.MetaAttrsRefID
	}
	return ""
}

func (s *Snapshot) OperationsRefID(rscID string) string {
	if r := s.resource(rscID); r != nil {
		return r.OperationsRefID
	}
	return ""
}

func (s *Snapshot) ColocationIDs(rscID string) []string {
	if r := s.resource(rscID); r != nil {
		return copyStrings(r.Colocations)
	}
	return nil
}

func (s *Snapshot) OrderIDs(rscID string) []string {
	if r := s.resource(rscID); r != nil {
		return copyStrings(r.Orders)
	}
	return nil
}
