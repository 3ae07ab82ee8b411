package dictionary

import (
	"encoding/xml"
	"fmt"
	"io"
)

// The schema file is an XML-ish tree (§6): <fix><header>, <trailer>,
// <messages><message msgtype=...>, <components><component name=...>,
// <fields><field name type required>. <group> and <component>
// elements compose inline. encoding/xml is the natural fit for this —
// no example repo in the corpus reaches for a third-party XML library,
// and the grammar is a handful of nested, attribute-driven elements
// that the stdlib decoder handles directly.

type rawNode struct {
	Fields     []xmlFieldRef     `xml:"field"`
	Groups     []xmlGroupRef     `xml:"group"`
	Components []xmlComponentRef `xml:"component"`
}

type xmlFieldRef struct {
	Name     string `xml:"name,attr"`
	Required string `xml:"required,attr"`
}

type xmlGroupRef struct {
	Name     string `xml:"name,attr"`
	Required string `xml:"required,attr"`
	Ordered  string `xml:"ordered,attr"`
	rawNode
}

type xmlComponentRef struct {
	Name     string `xml:"name,attr"`
	Required string `xml:"required,attr"`
}

type xmlComponent struct {
	Name string `xml:"name,attr"`
	rawNode
}

type xmlMessage struct {
	Name    string `xml:"name,attr"`
	MsgType string `xml:"msgtype,attr"`
	rawNode
}

type xmlFieldDef struct {
	Name   string `xml:"name,attr"`
	Number int    `xml:"number,attr"`
	Type   string `xml:"type,attr"`
}

type xmlFix struct {
	XMLName xml.Name       `xml:"fix"`
	Begin   string         `xml:"type,attr"`
	Major   string         `xml:"major,attr"`
	Minor   string         `xml:"minor,attr"`
	Header  rawNode        `xml:"header"`
	Trailer rawNode        `xml:"trailer"`
	Messages []xmlMessage  `xml:"messages>message"`
	Components []xmlComponent `xml:"components>component"`
	Fields  []xmlFieldDef  `xml:"fields>field"`
}

func attrBool(v string, def bool) bool {
	switch v {
	case "Y", "y", "true", "1":
		return true
	case "N", "n", "false", "0":
		return false
	default:
		return def
	}
}

// Load builds a Dictionary from a schema source read from r.
func Load(r io.Reader) (*Dictionary, error) {
	var doc xmlFix
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, NewSchemaError("malformed schema document: %v", err)
	}

	d := &Dictionary{
		BeginString:  fmt.Sprintf("FIX.%s.%s", doc.Major, doc.Minor),
		Fields:       make(map[int]FieldDef),
		FieldsByName: make(map[string]int),
		Messages:     make(map[string]*GroupSpec),
	}
	if doc.Begin != "" {
		d.BeginString = doc.Begin
	}

	for _, f := range doc.Fields {
		ft, ok := ParseFieldType(f.Type)
		if !ok {
			return nil, NewSchemaError("field %s (tag %d) has unknown type %q", f.Name, f.Number, f.Type)
		}
		if _, dup := d.Fields[f.Number]; dup {
			return nil, NewSchemaError("duplicate field definition for tag %d", f.Number)
		}
		d.Fields[f.Number] = FieldDef{Tag: f.Number, Name: f.Name, Type: ft}
		d.FieldsByName[f.Name] = f.Number
	}

	components, err := resolveComponents(doc.Components, d.FieldsByName)
	if err != nil {
		return nil, err
	}

	d.Header, err = buildGroupSpec(doc.Header, true, d.FieldsByName, components)
	if err != nil {
		return nil, NewSchemaError("header: %v", err)
	}
	d.Trailer, err = buildGroupSpec(doc.Trailer, true, d.FieldsByName, components)
	if err != nil {
		return nil, NewSchemaError("trailer: %v", err)
	}

	for _, m := range doc.Messages {
		if m.MsgType == "" {
			return nil, NewSchemaError("message %s is missing msgtype", m.Name)
		}
		if _, dup := d.Messages[m.MsgType]; dup {
			return nil, NewSchemaError("duplicate message definition for msgtype %q", m.MsgType)
		}
		gs, err := buildGroupSpec(m.rawNode, true, d.FieldsByName, components)
		if err != nil {
			return nil, NewSchemaError("message %s (%s): %v", m.Name, m.MsgType, err)
		}
		d.Messages[m.MsgType] = gs
	}

	return d, nil
}

// resolvedComponent is a component materialized into a GroupSpec,
// built in topological order so that every component it itself
// references is already resolved.
type resolvedComponent struct {
	spec *GroupSpec
}

func resolveComponents(defs []xmlComponent, fieldsByName map[string]int) (map[string]*resolvedComponent, error) {
	byName := make(map[string]xmlComponent, len(defs))
	for _, c := range defs {
		if _, dup := byName[c.Name]; dup {
			return nil, NewSchemaError("duplicate component definition %q", c.Name)
		}
		byName[c.Name] = c
	}

	order, err := topoSortComponents(byName)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]*resolvedComponent, len(defs))
	for _, name := range order {
		gs, err := buildGroupSpec(byName[name].rawNode, true, fieldsByName, resolved)
		if err != nil {
			return nil, NewSchemaError("component %s: %v", name, err)
		}
		resolved[name] = &resolvedComponent{spec: gs}
	}
	return resolved, nil
}

// topoSortComponents orders component definitions so that every
// component referenced by another is resolved first, rejecting cycles.
func topoSortComponents(byName map[string]xmlComponent) ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(byName))
	var order []string

	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return NewSchemaError("component reference cycle: %v -> %s", chain, name)
		}
		comp, ok := byName[name]
		if !ok {
			return NewSchemaError("component %q referenced but not defined", name)
		}
		state[name] = visiting
		for _, ref := range comp.Components {
			if err := visit(ref.Name, append(chain, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for name := range byName {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// buildGroupSpec materializes a rawNode (header, trailer, message body,
// or a <group> element) into a GroupSpec. The node's own fields come
// first in its Order, then its own groups, then the tags of each
// referenced component in reference order. Duplicate field or group
// tags within the resulting GroupSpec (including those introduced
// through a component) are a fatal schema error.
func buildGroupSpec(n rawNode, ordered bool, fieldsByName map[string]int, components map[string]*resolvedComponent) (*GroupSpec, error) {
	gs := NewGroupSpec()
	gs.StrictOrder = ordered

	addField := func(tag int, required bool) error {
		if gs.HasField(tag) || gs.HasGroup(tag) {
			return fmt.Errorf("duplicate reference to tag %d", tag)
		}
		gs.Fields[tag] = required
		gs.Order = append(gs.Order, tag)
		return nil
	}
	addGroup := func(tag int, child *GroupSpec) error {
		if gs.HasField(tag) || gs.HasGroup(tag) {
			return fmt.Errorf("duplicate reference to tag %d", tag)
		}
		gs.Groups[tag] = child
		gs.Order = append(gs.Order, tag)
		return nil
	}

	for _, fr := range n.Fields {
		tag, ok := fieldsByName[fr.Name]
		if !ok {
			return nil, fmt.Errorf("field %q is not declared in <fields>", fr.Name)
		}
		if err := addField(tag, attrBool(fr.Required, false)); err != nil {
			return nil, err
		}
	}

	for _, gr := range n.Groups {
		tag, ok := fieldsByName[gr.Name]
		if !ok {
			return nil, fmt.Errorf("group %q is not declared in <fields>", gr.Name)
		}
		child, err := buildGroupSpec(gr.rawNode, attrBool(gr.Ordered, true), fieldsByName, components)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", gr.Name, err)
		}
		if len(child.Order) > 0 {
			child.Delim = child.Order[0]
		}
		if err := addGroup(tag, child); err != nil {
			return nil, err
		}
	}

	for _, cr := range n.Components {
		rc, ok := components[cr.Name]
		if !ok {
			return nil, fmt.Errorf("component %q is not defined", cr.Name)
		}
		for _, tag := range rc.spec.Order {
			if child, isGroup := rc.spec.Groups[tag]; isGroup {
				if err := addGroup(tag, child); err != nil {
					return nil, fmt.Errorf("component %s: %w", cr.Name, err)
				}
				continue
			}
			req := rc.spec.Fields[tag]
			if err := addField(tag, req); err != nil {
				return nil, fmt.Errorf("component %s: %w", cr.Name, err)
			}
		}
	}

	return gs, nil
}
