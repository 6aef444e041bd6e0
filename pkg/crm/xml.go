package crm

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/rasto/lcmc-sub002/pkg/types"
)

type xmlNvpair struct {
	XMLName xml.Name `xml:"nvpair"`
	ID      string   `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

type xmlAttributes struct {
	ID      string      `xml:"id,attr,omitempty"`
	IDRef   string      `xml:"id-ref,attr,omitempty"`
	Nvpairs []xmlNvpair `xml:"nvpair"`
}

type xmlOp struct {
	XMLName xml.Name   `xml:"op"`
	Attrs   []xml.Attr `xml:",any,attr"`
}

type xmlOperations struct {
	ID    string  `xml:"id,attr,omitempty"`
	IDRef string  `xml:"id-ref,attr,omitempty"`
	Ops   []xmlOp `xml:"op"`
}

type xmlPrimitive struct {
	XMLName    xml.Name       `xml:"primitive"`
	ID         string         `xml:"id,attr"`
	Class      string         `xml:"class,attr,omitempty"`
	Provider   string         `xml:"provider,attr,omitempty"`
	Type       string         `xml:"type,attr,omitempty"`
	Instance   *xmlAttributes `xml:"instance_attributes,omitempty"`
	Meta       *xmlAttributes `xml:"meta_attributes,omitempty"`
	Operations *xmlOperations `xml:"operations,omitempty"`
}

type xmlGroup struct {
	XMLName    xml.Name       `xml:"group"`
	ID         string         `xml:"id,attr"`
	Meta       *xmlAttributes `xml:"meta_attributes,omitempty"`
	Primitives []xmlPrimitive `xml:"primitive"`
}

type xmlClone struct {
	XMLName xml.Name
	ID      string         `xml:"id,attr"`
	Meta    *xmlAttributes `xml:"meta_attributes,omitempty"`
	Group   xmlGroup
}

type xmlResourceRef struct {
	XMLName xml.Name `xml:"resource_ref"`
	ID      string   `xml:"id,attr"`
}

type xmlResourceSet struct {
	XMLName    xml.Name         `xml:"resource_set"`
	ID         string           `xml:"id,attr"`
	Sequential string           `xml:"sequential,attr"`
	RequireAll string           `xml:"require-all,attr"`
	Action     string           `xml:"action,attr,omitempty"`
	Role       string           `xml:"role,attr,omitempty"`
	Refs       []xmlResourceRef `xml:"resource_ref"`
}

type xmlConstraint struct {
	XMLName xml.Name
	Attrs   []xml.Attr       `xml:",any,attr"`
	Sets    []xmlResourceSet `xml:"resource_set"`
}

// sortedKeys keeps generated XML stable
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nvpairs(parentID string, values, ids map[string]string) []xmlNvpair {
	out := make([]xmlNvpair, 0, len(values))
	for _, name := range sortedKeys(values) {
		id := ids[name]
		if id == "" {
			id = parentID + "-" + name
		}
		out = append(out, xmlNvpair{ID: id, Name: name, Value: values[name]})
	}
	return out
}

func attributes(id, refID, fallbackID string, values, ids map[string]string) *xmlAttributes {
	if refID != "" {
		return &xmlAttributes{IDRef: refID}
	}
	if len(values) == 0 {
		return nil
	}
	if id == "" {
		id = fallbackID
	}
	return &xmlAttributes{ID: id, Nvpairs: nvpairs(id, values, ids)}
}

func operations(m GroupMember) *xmlOperations {
	if m.OperationsRefID != "" {
		return &xmlOperations{IDRef: m.OperationsRefID}
	}
	if len(m.Operations) == 0 {
		return nil
	}
	id := m.OperationsID
	if id == "" {
		id = m.ID + "-operations"
	}
	ops := &xmlOperations{ID: id}
	for _, name := range sortedKeys(m.Operations) {
		attrs := m.Operations[name]
		opID := m.OperationIDs[name]
		if opID == "" {
			opID = m.ID + "-" + name + "-" + attrs["interval"]
		}
		op := xmlOp{Attrs: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: opID},
			{Name: xml.Name{Local: "name"}, Value: name},
		}}
		for _, k := range sortedKeys(attrs) {
			op.Attrs = append(op.Attrs, xml.Attr{Name: xml.Name{Local: k}, Value: attrs[k]})
		}
		ops.Ops = append(ops.Ops, op)
	}
	return ops
}

func primitive(m GroupMember) xmlPrimitive {
	return xmlPrimitive{
		ID:         m.ID,
		Class:      m.Class,
		Provider:   m.Provider,
		Type:       m.Type,
		Instance:   attributes(m.InstanceAttrID, "", m.ID+"-instance_attributes", m.Params, m.NvpairIDs),
		Meta:       attributes(m.MetaAttrsID, m.MetaAttrsRefID, m.ID+"-meta_attributes", m.MetaAttrs, nil),
		Operations: operations(m),
	}
}

// groupXML renders the group, wrapped in its clone when there is one
func groupXML(req *ReplaceGroupRequest) (string, error) {
	g := xmlGroup{
		ID:   req.GroupID,
		Meta: attributes(req.GroupMetaAttrsID, "", req.GroupID+"-meta_attributes", req.GroupMetaAttrs, nil),
	}
	for _, m := range req.Members {
		g.Primitives = append(g.Primitives, primitive(m))
	}

	var v interface{} = g
	if c := req.Clone; c != nil {
		name := "clone"
		if c.Master {
			name = "master"
		}
		v = xmlClone{
			XMLName: xml.Name{Local: name},
			ID:      c.ID,
			Meta:    attributes(c.MetaAttrsID, c.MetaAttrsRefID, c.ID+"-meta_attributes", c.MetaAttrs, nil),
			Group:   g,
		}
	}
	return marshal(v)
}

// rscSetConstraintXML renders one resource-set constraint. Empty sets are
// dropped; nil is returned when no set has members.
func rscSetConstraintXML(kind types.ConstraintKind, id string, sets []*types.ResourceSet, attrs map[string]string) (string, bool, error) {
	name := "rsc_order"
	if kind == types.ConstraintColocation {
		name = "rsc_colocation"
	}
	c := xmlConstraint{
		XMLName: xml.Name{Local: name},
		Attrs:   []xml.Attr{{Name: xml.Name{Local: "id"}, Value: id}},
	}
	for _, k := range sortedKeys(attrs) {
		c.Attrs = append(c.Attrs, xml.Attr{Name: xml.Name{Local: k}, Value: attrs[k]})
	}
	for _, set := range sets {
		if set.IsEmpty() {
			continue
		}
		xs := xmlResourceSet{
			ID:         fmt.Sprintf("%s-%d", id, len(c.Sets)),
			Sequential: strconv.FormatBool(set.Sequential),
			RequireAll: strconv.FormatBool(set.RequireAll),
		}
		if kind == types.ConstraintColocation {
			xs.Role = set.ColocationRole
		} else {
			xs.Action = set.OrderAction
		}
		for _, rscID := range set.RscIDs {
			xs.Refs = append(xs.Refs, xmlResourceRef{ID: rscID})
		}
		c.Sets = append(c.Sets, xs)
	}
	if len(c.Sets) == 0 {
		return "", false, nil
	}
	out, err := marshal(c)
	return out, true, err
}

// elementXML renders an empty element identified by id, as cibadmin
// expects for deletions.
func elementXML(name, id string, attrs ...xml.Attr) (string, error) {
	return marshal(xmlConstraint{
		XMLName: xml.Name{Local: name},
		Attrs:   append([]xml.Attr{{Name: xml.Name{Local: "id"}, Value: id}}, attrs...),
	})
}

func marshal(v interface{}) (string, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to render cib xml: %w", err)
	}
	return string(data), nil
}
