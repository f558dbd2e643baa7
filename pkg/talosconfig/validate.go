// File: pkg/talosconfig/validate.go
package talosconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	structCheck   *validator.Validate
)

// structValidator returns the shared validator. validator.Validate caches
// struct metadata and is safe for concurrent use.
func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("finite", validateFinite); err != nil {
			panic(fmt.Sprintf("failed to register finite validation: %v", err))
		}
		structCheck = v
	})
	return structCheck
}

func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		x := f.Float()
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return true
}

// translateValidation converts the first validator failure into one of the
// package's typed errors.
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	fe := verrs[0]
	key := trimRoot(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return &MissingFieldError{Key: key}
	case "oneof":
		return &InvalidEnumError{Key: key, Value: fmt.Sprint(fe.Value()), Allowed: strings.Fields(fe.Param())}
	case "ltefield", "ltfield", "gtefield", "gtfield":
		return &RangeError{Key: key, Value: fe.Value(), Range: fieldBound(fe)}
	case "min", "max", "len":
		if k := fe.Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
			return &RangeError{Key: key, Value: fe.Value(), Range: lengthBound(fe.Tag(), fe.Param())}
		}
	}
	return &RangeError{Key: key, Value: fe.Value(), Range: numericBound(fe)}
}

// trimRoot drops the root struct name from a validator namespace.
func trimRoot(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

func fieldBound(fe validator.FieldError) string {
	op := map[string]string{"ltefield": "<=", "ltfield": "<", "gtefield": ">=", "gtfield": ">"}[fe.Tag()]
	sibling := fe.Param()
	if _, parent, ok := structFieldAt(reflect.TypeOf(Document{}), fe.StructNamespace()); ok {
		if sf, found := parent.FieldByName(fe.Param()); found {
			if name, _, _ := strings.Cut(sf.Tag.Get("yaml"), ","); name != "" {
				sibling = name
			}
		}
	}
	key := trimRoot(fe.Namespace())
	if i := strings.LastIndex(key, "."); i >= 0 {
		sibling = key[:i+1] + sibling
	}
	return op + " " + sibling
}

func lengthBound(tag, param string) string {
	switch tag {
	case "min":
		return fmt.Sprintf("a sequence of at least %s element(s)", param)
	case "max":
		return fmt.Sprintf("a sequence of at most %s element(s)", param)
	}
	return fmt.Sprintf("a sequence of exactly %s element(s)", param)
}

// numericBound renders every bound declared on the failing field as an
// interval, e.g. "gt=0,lte=1" becomes "(0, 1]".
func numericBound(fe validator.FieldError) string {
	tags := ""
	if sf, _, ok := structFieldAt(reflect.TypeOf(Document{}), fe.StructNamespace()); ok {
		tags = sf.Tag.Get("validate")
		if strings.HasSuffix(fe.StructNamespace(), "]") {
			if _, after, found := strings.Cut(tags, "dive,"); found {
				tags = after
			}
		}
	}

	lo, hi := "-inf", "+inf"
	loBracket, hiBracket := "(", ")"
	bounded := false
	for _, t := range strings.Split(tags, ",") {
		name, param, _ := strings.Cut(t, "=")
		if name == "dive" {
			break
		}
		switch name {
		case "gt":
			lo, loBracket, bounded = param, "(", true
		case "gte", "min":
			lo, loBracket, bounded = param, "[", true
		case "lt":
			hi, hiBracket, bounded = param, ")", true
		case "lte", "max":
			hi, hiBracket, bounded = param, "]", true
		}
	}
	if !bounded {
		return "a finite number"
	}
	return fmt.Sprintf("%s%s, %s%s", loBracket, lo, hi, hiBracket)
}

// structFieldAt follows a validator struct namespace ("Document.Training.LogInterval")
// down the type tree and returns the final field and the struct that holds it.
func structFieldAt(root reflect.Type, ns string) (reflect.StructField, reflect.Type, bool) {
	parts := strings.Split(ns, ".")
	if len(parts) < 2 {
		return reflect.StructField{}, nil, false
	}
	t := root
	var sf reflect.StructField
	var parent reflect.Type
	for _, part := range parts[1:] {
		if i := strings.IndexByte(part, '['); i >= 0 {
			part = part[:i]
		}
		t = indirectType(t)
		if t.Kind() != reflect.Struct {
			return reflect.StructField{}, nil, false
		}
		f, ok := t.FieldByName(part)
		if !ok {
			return reflect.StructField{}, nil, false
		}
		sf, parent, t = f, t, f.Type
	}
	return sf, parent, true
}

func indirectType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}

// crossCheck enforces the invariants that span several keys.
func crossCheck(doc *Document, kind Kind) error {
	if err := checkRobotDesigner(&doc.RobotDesigner, kind); err != nil {
		return err
	}
	if doc.OCP != nil {
		if err := checkOCP(doc.OCP, &doc.RobotDesigner); err != nil {
			return err
		}
	}
	if err := checkEnvironment(&doc.Environment, &doc.RobotDesigner); err != nil {
		return err
	}
	if doc.SAC != nil {
		if err := checkSAC(doc.SAC); err != nil {
			return err
		}
	}
	return nil
}

func checkRobotDesigner(rd *RobotDesignerConfig, kind Kind) error {
	pairs := []struct {
		a, b       string
		aSet, bSet bool
	}{
		{"robot_designer.URDF", "robot_designer.urdf_path", rd.URDF != "", rd.URDFPath != ""},
		{"robot_designer.SRDF", "robot_designer.srdf_path", rd.SRDF != "", rd.SRDFPath != ""},
		{"robot_designer.controlledJoints", "robot_designer.controlled_joints_names", len(rd.ControlledJoints) > 0, len(rd.ControlledJointsNames) > 0},
	}
	for _, p := range pairs {
		if p.aSet && p.bSet {
			return &ConflictError{Key: p.a, Other: p.b}
		}
		if !p.aSet && !p.bSet {
			// Name the spelling the document kind uses first.
			if kind == KindMPCRL {
				return &MissingFieldError{Key: p.b, Alternatives: []string{p.a}}
			}
			return &MissingFieldError{Key: p.a, Alternatives: []string{p.b}}
		}
	}

	key := rd.jointsKey()
	seen := make(map[string]int)
	for i, j := range rd.Joints() {
		if strings.TrimSpace(j) == "" {
			return &RangeError{Key: indexKey(key, i), Value: j, Range: "a non-empty joint name"}
		}
		if prev, dup := seen[j]; dup {
			return &RangeError{Key: indexKey(key, i), Value: j, Range: fmt.Sprintf("unique (already listed at index %d)", prev)}
		}
		seen[j] = i
	}

	if kind == KindSAC && rd.ToolPosition == nil {
		return &MissingFieldError{Key: "robot_designer.toolPosition"}
	}
	if rd.LeftFootName != "" && rd.RightFootName == "" {
		return &MissingFieldError{Key: "robot_designer.right_foot_name"}
	}
	if rd.RightFootName != "" && rd.LeftFootName == "" {
		return &MissingFieldError{Key: "robot_designer.left_foot_name"}
	}
	return nil
}

func checkOCP(ocp *OCPConfig, rd *RobotDesignerConfig) error {
	jointsKey := rd.jointsKey()
	for i, j := range rd.Joints() {
		if _, ok := SegmentOf(j); !ok {
			return &InvalidEnumError{Key: indexKey(jointsKey, i), Value: j, Allowed: jointPrefixes()}
		}
	}
	dof := SegmentDoF(rd.Joints())

	if err := checkSegmentWeights("OCP.state_pos_weights", ocp.StatePosWeights, dof, jointsKey, false); err != nil {
		return err
	}
	if err := checkSegmentWeights("OCP.state_vel_weights", ocp.StateVelWeights, dof, jointsKey, false); err != nil {
		return err
	}
	return checkSegmentWeights("OCP.control_weights", ocp.ControlWeights, dof, jointsKey, true)
}

// checkSegmentWeights verifies one weight map against the segment DoF counts.
// The floating base is not actuated, so control weights must not mention it.
func checkSegmentWeights(key string, w SegmentWeights, dof map[Segment]int, jointsKey string, actuated bool) error {
	allowed := segmentNames()
	if actuated {
		allowed = segmentNames(SegmentBase)
	}
	for _, name := range sortedKeys(w) {
		path := joinKey(key, name)
		if !isSegment(name) || (actuated && Segment(name) == SegmentBase) {
			return &InvalidEnumError{Key: path, Value: name, Allowed: allowed}
		}
		vec := w[name]
		if want := dof[Segment(name)]; len(vec) != want {
			return &ArityMismatchError{
				Key:      path,
				Len:      len(vec),
				Other:    fmt.Sprintf("%s (%s degrees of freedom)", jointsKey, name),
				OtherLen: want,
			}
		}
		for i, x := range vec {
			if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
				return &RangeError{Key: indexKey(path, i), Value: x, Range: "[0, +inf)"}
			}
		}
	}
	for _, seg := range segmentOrder {
		if dof[seg] == 0 || (actuated && seg == SegmentBase) {
			continue
		}
		if _, ok := w[string(seg)]; !ok {
			return &MissingFieldError{Key: joinKey(key, string(seg))}
		}
	}
	return nil
}

func checkEnvironment(env *EnvironmentConfig, rd *RobotDesignerConfig) error {
	if err := checkOrdered("environment.lowerLimitPos", env.LowerLimitPos, "environment.upperLimitPos", env.UpperLimitPos); err != nil {
		return err
	}

	require := func(name string, set bool) error {
		if !set {
			return &MissingFieldError{Key: "environment." + name}
		}
		return nil
	}
	switch env.TargetType {
	case TargetFixed:
		if err := require("targetPosition", env.TargetPosition != nil); err != nil {
			return err
		}
	case TargetSphere:
		if err := require("targetPosition", env.TargetPosition != nil); err != nil {
			return err
		}
		if err := require("targetRadius", env.TargetRadius != nil); err != nil {
			return err
		}
	case TargetBox:
		if err := require("targetPosition", env.TargetPosition != nil); err != nil {
			return err
		}
		if err := require("targetSizeLow", env.TargetSizeLow != nil); err != nil {
			return err
		}
		if err := require("targetSizeHigh", env.TargetSizeHigh != nil); err != nil {
			return err
		}
		if err := checkOrdered("environment.targetSizeLow", *env.TargetSizeLow, "environment.targetSizeHigh", *env.TargetSizeHigh); err != nil {
			return err
		}
	case TargetReachable:
		if err := require("shoulderPosition", env.ShoulderPosition != nil); err != nil {
			return err
		}
	}

	if len(env.WJointsToInit) > 0 {
		joints := rd.Joints()
		allowed := make(map[string]bool, len(joints))
		for _, j := range joints {
			allowed[j] = true
		}
		names := make([]string, 0, len(env.WJointsToInit))
		for name := range env.WJointsToInit {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			key := "environment.w_joints_to_init." + name
			if !allowed[name] {
				return &InvalidEnumError{Key: key, Value: name, Allowed: joints}
			}
			if x := env.WJointsToInit[name]; math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
				return &RangeError{Key: key, Value: x, Range: "[0, +inf)"}
			}
		}
	}
	return nil
}

func checkOrdered(lowKey string, low Vec3, highKey string, high Vec3) error {
	for i := range low {
		if low[i] > high[i] {
			return &RangeError{
				Key:   indexKey(lowKey, i),
				Value: low[i],
				Range: fmt.Sprintf("<= %s (%g)", indexKey(highKey, i), high[i]),
			}
		}
	}
	return nil
}

func checkSAC(sac *SACConfig) error {
	if sac.HerReplayBufferParam != nil && sac.ModelParam.Policy != "MultiInputPolicy" {
		// Hindsight replay needs dictionary observations (observation, achieved_goal, desired_goal).
		return &InvalidEnumError{
			Key:     "SAC.model_param.policy",
			Value:   sac.ModelParam.Policy,
			Allowed: []string{"MultiInputPolicy"},
		}
	}
	return nil
}
