// File: pkg/talosconfig/types.go
package talosconfig

// Kind identifies which of the two training documents was loaded.
type Kind string

const (
	// KindAuto asks the loader to detect the kind from the top-level keys.
	KindAuto Kind = ""
	// KindSAC is a Soft Actor-Critic (+HER) training document.
	KindSAC Kind = "sac"
	// KindMPCRL is an MPC + RL hybrid training document.
	KindMPCRL Kind = "mpc-rl"
)

// ParseKind maps a user supplied string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "auto":
		return KindAuto, nil
	case "sac", "SAC":
		return KindSAC, nil
	case "mpc-rl", "mpc", "MPC-RL":
		return KindMPCRL, nil
	}
	return KindAuto, &InvalidEnumError{Key: "kind", Value: s, Allowed: []string{"auto", "sac", "mpc-rl"}}
}

// Vec3 is a Cartesian 3-vector.
type Vec3 [3]float64

// Document is the root of a training configuration. Exactly one of SAC or OCP is set.
// Documents returned by the loader are never touched again by this package;
// callers must treat them as read-only.
type Document struct {
	OCP           *OCPConfig          `yaml:"OCP,omitempty"`
	Training      TrainingConfig      `yaml:"training"`
	SAC           *SACConfig          `yaml:"SAC,omitempty"`
	Environment   EnvironmentConfig   `yaml:"environment"`
	RobotDesigner RobotDesignerConfig `yaml:"robot_designer"`
}

// Kind reports which document variant this is.
func (d *Document) Kind() Kind {
	if d.OCP != nil {
		return KindMPCRL
	}
	return KindSAC
}

// TrainingConfig is the training schedule.
type TrainingConfig struct {
	Name                string `yaml:"name" validate:"required"`
	TotalTimesteps      int    `yaml:"total_timesteps" validate:"gt=0"`
	LogInterval         int    `yaml:"log_interval" validate:"gt=0,ltefield=TotalTimesteps"`
	EnvironmentQuantity int    `yaml:"environment_quantity" validate:"gt=0"`
	Verbose             bool   `yaml:"verbose,omitempty"`
}

// SACConfig groups the Soft Actor-Critic parameters.
type SACConfig struct {
	ModelParam           ModelParam            `yaml:"model_param"`
	HerReplayBufferParam *HerReplayBufferParam `yaml:"HerReplayBuffer_param,omitempty"`
}

// ModelParam holds the SAC learning hyperparameters.
type ModelParam struct {
	Policy         string       `yaml:"policy" validate:"oneof=MultiInputPolicy MlpPolicy CnnPolicy"`
	LearningStarts int          `yaml:"learning_starts" default:"100" validate:"gte=0"`
	BufferSize     int          `yaml:"buffer_size" validate:"gt=0"`
	LearningRate   float64      `yaml:"learning_rate" validate:"gt=0,finite"`
	TrainFreq      int          `yaml:"train_freq" validate:"gt=0"`
	Gamma          float64      `yaml:"gamma" validate:"gt=0,lte=1"`
	BatchSize      int          `yaml:"batch_size" validate:"gt=0,ltefield=BufferSize"`
	Tau            float64      `yaml:"tau" validate:"gt=0,lte=1"`
	PolicyKwargs   PolicyKwargs `yaml:"policy_kwargs"`
	Device         string       `yaml:"device" default:"auto" validate:"oneof=auto cpu cuda gpu"`
	TensorboardLog string       `yaml:"tensorboard_log,omitempty"`
	Verbose        int          `yaml:"verbose" default:"0" validate:"gte=0,lte=2"`
}

// PolicyKwargs describes the actor/critic network.
type PolicyKwargs struct {
	NetArch []int `yaml:"net_arch" validate:"min=1,dive,gt=0"`
}

// HerReplayBufferParam wraps the hindsight replay buffer settings.
type HerReplayBufferParam struct {
	ReplayBufferKwargs ReplayBufferConfig `yaml:"replay_buffer_kwargs"`
}

// ReplayBufferConfig configures goal relabeling.
type ReplayBufferConfig struct {
	CopyInfoDict          bool   `yaml:"copy_info_dict,omitempty"`
	NSampledGoal          int    `yaml:"n_sampled_goal" validate:"gte=0"`
	GoalSelectionStrategy string `yaml:"goal_selection_strategy" validate:"oneof=future final episode"`
}

// Target types.
const (
	TargetFixed     = "fixed"
	TargetReachable = "reachable"
	TargetBox       = "box"
	TargetSphere    = "sphere"
)

// EnvironmentConfig holds simulation, target and reward settings.
type EnvironmentConfig struct {
	NumSimulationSteps int      `yaml:"numSimulationSteps" validate:"gt=0"`
	TimeStepSimulation float64  `yaml:"timeStepSimulation" validate:"gt=0,finite"`
	NormalizeObs       bool     `yaml:"normalizeObs"`
	RandomInit         bool     `yaml:"randomInit" default:"false"`
	LimitPosScale      float64  `yaml:"limitPosScale" default:"10" validate:"gt=0,finite"`
	LimitVelScale      float64  `yaml:"limitVelScale" default:"30" validate:"gt=0,finite"`
	TorqueScaleCoeff   float64  `yaml:"torqueScaleCoeff" default:"1" validate:"gt=0,finite"`
	ThresholdSuccess   float64  `yaml:"thresholdSuccess" default:"0.05" validate:"gte=0,finite"`
	MaxTime            float64  `yaml:"maxTime" validate:"gt=0,finite"`
	MinHeight          *float64 `yaml:"minHeight,omitempty" validate:"omitempty,gte=0,finite"`

	LowerLimitPos Vec3 `yaml:"lowerLimitPos" default:"[-0.5, -0.5, 0.9]" validate:"dive,finite"`
	UpperLimitPos Vec3 `yaml:"upperLimitPos" default:"[0.5, 0.5, 1.5]" validate:"dive,finite"`

	TargetType       string   `yaml:"targetType" validate:"oneof=fixed reachable box sphere"`
	TargetPosition   *Vec3    `yaml:"targetPosition,omitempty" validate:"omitempty,dive,finite"`
	TargetSizeLow    *Vec3    `yaml:"targetSizeLow,omitempty" validate:"omitempty,dive,finite"`
	TargetSizeHigh   *Vec3    `yaml:"targetSizeHigh,omitempty" validate:"omitempty,dive,finite"`
	TargetRadius     *float64 `yaml:"targetRadius,omitempty" validate:"omitempty,gt=0,finite"`
	ShoulderPosition *Vec3    `yaml:"shoulderPosition,omitempty" validate:"omitempty,dive,finite"`

	RewardType              string             `yaml:"rewardType" default:"dense" validate:"oneof=dense sparse"`
	WTargetPos              float64            `yaml:"w_target_pos" validate:"gte=0,finite"`
	WControlReg             float64            `yaml:"w_control_reg" validate:"gte=0,finite"`
	WPenalizationTruncation float64            `yaml:"w_penalization_truncation" validate:"gte=0,finite"`
	WTargetReached          float64            `yaml:"w_target_reached" default:"5" validate:"gte=0,finite"`
	WAlive                  float64            `yaml:"w_alive" default:"1" validate:"gte=0,finite"`
	WJointsToInit           map[string]float64 `yaml:"w_joints_to_init,omitempty"`
}

// MaxSteps is the episode length in environment steps, truncated toward zero.
func (e EnvironmentConfig) MaxSteps() int {
	return int(e.MaxTime / e.ControlPeriod())
}

// ControlPeriod is the duration of one environment step in seconds.
func (e EnvironmentConfig) ControlPeriod() float64 {
	return e.TimeStepSimulation * float64(e.NumSimulationSteps)
}

// RobotDesignerConfig locates the robot model and selects the controlled joints.
// The SAC and MPC documents spell three of the keys differently; use the
// accessor methods rather than the raw fields.
type RobotDesignerConfig struct {
	URDF                  string   `yaml:"URDF,omitempty"`
	URDFPath              string   `yaml:"urdf_path,omitempty"`
	SRDF                  string   `yaml:"SRDF,omitempty"`
	SRDFPath              string   `yaml:"srdf_path,omitempty"`
	ControlledJoints      []string `yaml:"controlledJoints,omitempty"`
	ControlledJointsNames []string `yaml:"controlled_joints_names,omitempty"`
	ToolPosition          *Vec3    `yaml:"toolPosition,omitempty" validate:"omitempty,dive,finite"`
	LeftFootName          string   `yaml:"left_foot_name,omitempty"`
	RightFootName         string   `yaml:"right_foot_name,omitempty"`
	RobotDescription      string   `yaml:"robot_description,omitempty"`
}

// URDFFile returns the URDF location under whichever key the document used.
func (r RobotDesignerConfig) URDFFile() string {
	if r.URDF != "" {
		return r.URDF
	}
	return r.URDFPath
}

// SRDFFile returns the SRDF location under whichever key the document used.
func (r RobotDesignerConfig) SRDFFile() string {
	if r.SRDF != "" {
		return r.SRDF
	}
	return r.SRDFPath
}

// Joints returns the ordered controlled joint names.
func (r RobotDesignerConfig) Joints() []string {
	if len(r.ControlledJoints) > 0 {
		return r.ControlledJoints
	}
	return r.ControlledJointsNames
}

// jointsKey is the key path the document used for the joint list.
func (r RobotDesignerConfig) jointsKey() string {
	if len(r.ControlledJoints) > 0 {
		return "robot_designer.controlledJoints"
	}
	return "robot_designer.controlled_joints_names"
}

// OCPConfig is the optimal control problem solved by the MPC.
type OCPConfig struct {
	HorizonLength   int            `yaml:"horizon_length" validate:"gt=0"`
	TimeStep        float64        `yaml:"time_step" validate:"gt=0,finite"`
	WStateReg       float64        `yaml:"w_state_reg" validate:"gte=0,finite"`
	WControlReg     float64        `yaml:"w_control_reg" validate:"gte=0,finite"`
	WLimit          float64        `yaml:"w_limit" validate:"gte=0,finite"`
	WComPos         float64        `yaml:"w_com_pos" validate:"gte=0,finite"`
	WGripperPos     float64        `yaml:"w_gripper_pos" validate:"gte=0,finite"`
	WGripperRot     float64        `yaml:"w_gripper_rot" validate:"gte=0,finite"`
	WGripperVel     float64        `yaml:"w_gripper_vel" validate:"gte=0,finite"`
	LimitScale      float64        `yaml:"limit_scale" validate:"gt=0,lte=1"`
	StatePosWeights SegmentWeights `yaml:"state_pos_weights"`
	StateVelWeights SegmentWeights `yaml:"state_vel_weights"`
	ControlWeights  SegmentWeights `yaml:"control_weights"`
}

// Horizon is the OCP preview duration in seconds.
func (o OCPConfig) Horizon() float64 {
	return float64(o.HorizonLength) * o.TimeStep
}

// SegmentWeights maps a body segment name to its per-DoF weights.
type SegmentWeights map[string][]float64

// Flatten concatenates the weights in canonical segment order, which is the
// order the state/control vectors of the MPC use.
func (w SegmentWeights) Flatten() []float64 {
	var out []float64
	for _, seg := range segmentOrder {
		out = append(out, w[string(seg)]...)
	}
	return out
}
