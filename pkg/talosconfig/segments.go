// File: pkg/talosconfig/segments.go
package talosconfig

import (
	"sort"
	"strings"
)

// Segment is a body part of the Talos humanoid. OCP weight vectors are keyed by segment.
type Segment string

const (
	SegmentBase         Segment = "base"
	SegmentLeftLeg      Segment = "left_leg"
	SegmentRightLeg     Segment = "right_leg"
	SegmentTorso        Segment = "torso"
	SegmentLeftArm      Segment = "left_arm"
	SegmentRightArm     Segment = "right_arm"
	SegmentLeftGripper  Segment = "left_gripper"
	SegmentRightGripper Segment = "right_gripper"
	SegmentHead         Segment = "head"
)

// FreeFlyerJoint is the name pinocchio gives the floating base joint.
const FreeFlyerJoint = "root_joint"

// freeFlyerDoF is the tangent dimension of the floating base.
const freeFlyerDoF = 6

// segmentOrder is the order segments appear in the MPC state and control vectors.
var segmentOrder = []Segment{
	SegmentBase,
	SegmentLeftLeg,
	SegmentRightLeg,
	SegmentTorso,
	SegmentLeftArm,
	SegmentRightArm,
	SegmentLeftGripper,
	SegmentRightGripper,
	SegmentHead,
}

var segmentPrefixes = []struct {
	prefix  string
	segment Segment
}{
	{"leg_left_", SegmentLeftLeg},
	{"leg_right_", SegmentRightLeg},
	{"torso_", SegmentTorso},
	{"arm_left_", SegmentLeftArm},
	{"arm_right_", SegmentRightArm},
	{"gripper_left_", SegmentLeftGripper},
	{"gripper_right_", SegmentRightGripper},
	{"head_", SegmentHead},
}

// Segments returns every known segment in canonical order.
func Segments() []Segment {
	out := make([]Segment, len(segmentOrder))
	copy(out, segmentOrder)
	return out
}

// SegmentOf maps a Talos joint name to the segment it moves.
func SegmentOf(joint string) (Segment, bool) {
	if joint == FreeFlyerJoint {
		return SegmentBase, true
	}
	for _, p := range segmentPrefixes {
		if strings.HasPrefix(joint, p.prefix) {
			return p.segment, true
		}
	}
	return "", false
}

// SegmentDoF counts the degrees of freedom each segment contributes to the
// given joint list. Joints that belong to no segment are ignored.
func SegmentDoF(joints []string) map[Segment]int {
	dof := make(map[Segment]int)
	for _, j := range joints {
		seg, ok := SegmentOf(j)
		if !ok {
			continue
		}
		if seg == SegmentBase {
			dof[seg] += freeFlyerDoF
			continue
		}
		dof[seg]++
	}
	return dof
}

func isSegment(name string) bool {
	for _, s := range segmentOrder {
		if string(s) == name {
			return true
		}
	}
	return false
}

func segmentNames(exclude ...Segment) []string {
	var out []string
outer:
	for _, s := range segmentOrder {
		for _, e := range exclude {
			if s == e {
				continue outer
			}
		}
		out = append(out, string(s))
	}
	return out
}

func jointPrefixes() []string {
	out := []string{FreeFlyerJoint}
	for _, p := range segmentPrefixes {
		out = append(out, p.prefix+"*")
	}
	return out
}

// sortedKeys returns the keys of a weight map, known segments first in
// canonical order and unknown names after them alphabetically.
func sortedKeys(w SegmentWeights) []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		for i, s := range segmentOrder {
			if string(s) == k {
				return i
			}
		}
		return len(segmentOrder)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}
