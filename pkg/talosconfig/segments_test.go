// File: pkg/talosconfig/segments_test.go
package talosconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentOf(t *testing.T) {
	cases := map[string]Segment{
		"root_joint":          SegmentBase,
		"leg_left_4_joint":    SegmentLeftLeg,
		"leg_right_1_joint":   SegmentRightLeg,
		"torso_2_joint":       SegmentTorso,
		"arm_left_7_joint":    SegmentLeftArm,
		"arm_right_1_joint":   SegmentRightArm,
		"gripper_left_joint":  SegmentLeftGripper,
		"gripper_right_joint": SegmentRightGripper,
		"head_1_joint":        SegmentHead,
	}
	for joint, want := range cases {
		t.Run(joint, func(t *testing.T) {
			got, ok := SegmentOf(joint)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	t.Run("unknown joint", func(t *testing.T) {
		_, ok := SegmentOf("wheel_joint")
		assert.False(t, ok)
		// Prefixes must match from the start of the name.
		_, ok = SegmentOf("left_leg_1_joint")
		assert.False(t, ok)
	})
}

func TestSegmentDoF(t *testing.T) {
	dof := SegmentDoF([]string{
		"root_joint",
		"torso_1_joint", "torso_2_joint",
		"arm_left_1_joint", "arm_left_2_joint", "arm_left_3_joint",
		"unrelated_joint",
	})
	assert.Equal(t, map[Segment]int{
		SegmentBase:    6,
		SegmentTorso:   2,
		SegmentLeftArm: 3,
	}, dof)
	assert.Empty(t, SegmentDoF(nil))
}

func TestSegments_CanonicalOrder(t *testing.T) {
	segs := Segments()
	assert.Equal(t, SegmentBase, segs[0])
	assert.Equal(t, SegmentHead, segs[len(segs)-1])

	// The returned slice is a copy.
	segs[0] = "mutated"
	assert.Equal(t, SegmentBase, Segments()[0])
}

func TestSortedKeys(t *testing.T) {
	w := SegmentWeights{
		"zeta":      {1},
		"right_arm": {1},
		"base":      {1},
		"alpha":     {1},
		"torso":     {1},
	}
	assert.Equal(t, []string{"base", "torso", "right_arm", "alpha", "zeta"}, sortedKeys(w))
}

func TestSegmentWeights_Flatten(t *testing.T) {
	w := SegmentWeights{
		"right_arm": {4, 4},
		"torso":     {2, 2},
		"base":      {0, 0, 0, 1, 1, 1},
	}
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1, 2, 2, 4, 4}, w.Flatten())
	assert.Nil(t, SegmentWeights(nil).Flatten())
}
