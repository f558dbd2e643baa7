// File: internal/robotdesc/check.go
package robotdesc

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

const (
	// ReferenceConfiguration is the SRDF group state used as the initial posture.
	ReferenceConfiguration = "half_sitting"
	// ToolParentJoint carries the tool frame placed at robot_designer.toolPosition.
	ToolParentJoint = "gripper_left_joint"
	// ToolParentFrame is the reference frame the tool frame is attached next to.
	ToolParentFrame = "gripper_left_fingertip_3_link"
)

// ModelError reports a robot description that lacks an element the
// training stack needs, independent of any configuration key.
type ModelError struct {
	File    string
	Element string
	Name    string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: no %s named %q", e.File, e.Element, e.Name)
}

// Model is a parsed URDF/SRDF pair with the paths they were read from.
type Model struct {
	URDFPath string
	SRDFPath string
	URDF     *URDF
	SRDF     *SRDF
}

// Load resolves and parses the robot description files a document names.
func Load(doc *talosconfig.Document, r *Resolver) (*Model, error) {
	urdfPath, err := r.Resolve(doc.RobotDesigner.URDFFile())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve URDF: %w", err)
	}
	srdfPath, err := r.Resolve(doc.RobotDesigner.SRDFFile())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve SRDF: %w", err)
	}

	m := &Model{URDFPath: urdfPath, SRDFPath: srdfPath}
	if m.URDF, err = parseFile(urdfPath, ParseURDF); err != nil {
		return nil, err
	}
	if m.SRDF, err = parseFile(srdfPath, ParseSRDF); err != nil {
		return nil, err
	}
	return m, nil
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open robot description: %w", err)
	}
	defer f.Close()
	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Check verifies the invariants that need the robot model loaded:
//   - every controlled joint is a movable URDF joint, or the free flyer;
//   - both foot links exist when foot names are set;
//   - the tool frame parent exists when a tool position is set;
//   - the SRDF declares the reference posture and every joint it sets
//     exists in the URDF.
func Check(doc *talosconfig.Document, m *Model) error {
	rd := doc.RobotDesigner
	jointsKey := "robot_designer.controlled_joints_names"
	if len(rd.ControlledJoints) > 0 {
		jointsKey = "robot_designer.controlledJoints"
	}

	for i, name := range rd.Joints() {
		if name == talosconfig.FreeFlyerJoint {
			continue
		}
		if j, ok := m.URDF.Joints[name]; !ok || !j.Movable() {
			return &talosconfig.InvalidEnumError{
				Key:     fmt.Sprintf("%s[%d]", jointsKey, i),
				Value:   name,
				Allowed: m.URDF.MovableJoints(),
			}
		}
	}

	feet := []struct{ key, link string }{
		{"robot_designer.left_foot_name", rd.LeftFootName},
		{"robot_designer.right_foot_name", rd.RightFootName},
	}
	for _, f := range feet {
		if f.link != "" && !m.URDF.Links[f.link] {
			return &talosconfig.InvalidEnumError{Key: f.key, Value: f.link, Allowed: m.URDF.LinkNames()}
		}
	}

	if rd.ToolPosition != nil {
		if _, ok := m.URDF.Joints[ToolParentJoint]; !ok {
			return &ModelError{File: m.URDFPath, Element: "joint", Name: ToolParentJoint}
		}
		if !m.URDF.Links[ToolParentFrame] {
			return &ModelError{File: m.URDFPath, Element: "link", Name: ToolParentFrame}
		}
	}

	posture, ok := m.SRDF.GroupStates[ReferenceConfiguration]
	if !ok {
		return &ModelError{File: m.SRDFPath, Element: "group_state", Name: ReferenceConfiguration}
	}
	names := make([]string, 0, len(posture))
	for name := range posture {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		// The free flyer is implicit in the URDF; its entry holds the base pose.
		if name == talosconfig.FreeFlyerJoint {
			continue
		}
		if _, ok := m.URDF.Joints[name]; !ok {
			return &ModelError{File: m.SRDFPath, Element: "URDF joint", Name: name}
		}
	}
	return nil
}
