// File: internal/robotdesc/model.go
package robotdesc

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Joint is a URDF joint reduced to what the configuration refers to.
type Joint struct {
	Name   string
	Type   string
	Parent string
	Child  string
}

// Movable reports whether the joint has at least one degree of freedom.
func (j Joint) Movable() bool {
	return j.Type != "fixed" && j.Type != ""
}

// URDF is the kinematic skeleton of a robot description.
type URDF struct {
	Name   string
	Joints map[string]Joint
	Links  map[string]bool
}

// MovableJoints lists the names of the non-fixed joints, sorted.
func (u *URDF) MovableJoints() []string {
	var out []string
	for name, j := range u.Joints {
		if j.Movable() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// LinkNames lists every link name, sorted.
func (u *URDF) LinkNames() []string {
	out := make([]string, 0, len(u.Links))
	for name := range u.Links {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SRDF holds the semantic annotations the training stack reads: joint groups
// and named reference configurations.
type SRDF struct {
	Name        string
	Groups      map[string][]string
	// GroupStates maps a configuration name to joint values. Multi-DoF joints
	// such as the free flyer carry several values (x y z qx qy qz qw).
	GroupStates map[string]map[string][]float64
}

// ParseURDF reads the joints and links of a URDF document.
func ParseURDF(r io.Reader) (*URDF, error) {
	root, err := readRobot(r)
	if err != nil {
		return nil, err
	}

	u := &URDF{
		Name:   root.SelectAttrValue("name", ""),
		Joints: make(map[string]Joint),
		Links:  make(map[string]bool),
	}
	for _, el := range root.SelectElements("link") {
		name := el.SelectAttrValue("name", "")
		if name == "" {
			return nil, fmt.Errorf("urdf: link without a name at %s", el.GetPath())
		}
		u.Links[name] = true
	}
	for _, el := range root.SelectElements("joint") {
		j := Joint{
			Name: el.SelectAttrValue("name", ""),
			Type: el.SelectAttrValue("type", ""),
		}
		if j.Name == "" {
			return nil, fmt.Errorf("urdf: joint without a name at %s", el.GetPath())
		}
		if p := el.SelectElement("parent"); p != nil {
			j.Parent = p.SelectAttrValue("link", "")
		}
		if c := el.SelectElement("child"); c != nil {
			j.Child = c.SelectAttrValue("link", "")
		}
		if _, dup := u.Joints[j.Name]; dup {
			return nil, fmt.Errorf("urdf: joint %q declared twice", j.Name)
		}
		u.Joints[j.Name] = j
	}
	return u, nil
}

// ParseSRDF reads the groups and group states of an SRDF document.
func ParseSRDF(r io.Reader) (*SRDF, error) {
	root, err := readRobot(r)
	if err != nil {
		return nil, err
	}

	s := &SRDF{
		Name:        root.SelectAttrValue("name", ""),
		Groups:      make(map[string][]string),
		GroupStates: make(map[string]map[string][]float64),
	}
	for _, g := range root.SelectElements("group") {
		name := g.SelectAttrValue("name", "")
		var joints []string
		for _, j := range g.SelectElements("joint") {
			joints = append(joints, j.SelectAttrValue("name", ""))
		}
		s.Groups[name] = joints
	}
	for _, gs := range root.SelectElements("group_state") {
		name := gs.SelectAttrValue("name", "")
		values := make(map[string][]float64)
		for _, j := range gs.SelectElements("joint") {
			jn := j.SelectAttrValue("name", "")
			fields := strings.Fields(j.SelectAttrValue("value", "0"))
			if len(fields) == 0 {
				return nil, fmt.Errorf("srdf: group_state %q joint %q: empty value", name, jn)
			}
			vs := make([]float64, len(fields))
			for i, raw := range fields {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("srdf: group_state %q joint %q: invalid value %q: %w", name, jn, raw, err)
				}
				vs[i] = v
			}
			values[jn] = vs
		}
		s.GroupStates[name] = values
	}
	return s, nil
}

func readRobot(r io.Reader) (*etree.Element, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse robot description: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "robot" {
		return nil, fmt.Errorf("robot description has no <robot> root element")
	}
	return root, nil
}
