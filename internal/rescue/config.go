package rescue

// Config holds the rescue flight parameters, normally loaded once at boot
// from the host's persisted-parameter subsystem (version 2, see SPEC_FULL.md
// §3) and never mutated for the life of the process. Struct tags follow the
// teacher's propulsion/electric.BatteryConfig and failsafe.FailsafeConfig
// convention so the host can decode it straight out of YAML.
type Config struct {
	AngleDeg                float64    `yaml:"angle_deg"`
	InitialAltitudeM        float64    `yaml:"initial_altitude_m"`
	DescentDistanceM        float64    `yaml:"descent_distance_m"`
	RescueGroundspeedCmS    float64    `yaml:"rescue_groundspeed_cm_s"`
	ThrottleP               float64    `yaml:"throttle_p"`
	ThrottleI               float64    `yaml:"throttle_i"`
	ThrottleD               float64    `yaml:"throttle_d"`
	VelP                    float64    `yaml:"vel_p"`
	VelI                    float64    `yaml:"vel_i"`
	VelD                    float64    `yaml:"vel_d"`
	YawP                    float64    `yaml:"yaw_p"`
	ThrottleMin             float64    `yaml:"throttle_min"`
	ThrottleMax             float64    `yaml:"throttle_max"`
	ThrottleHover           float64    `yaml:"throttle_hover"`
	SanityChecks            SanityMode `yaml:"sanity_checks"`
	MinRescueDthM           float64    `yaml:"min_rescue_dth_m"`
	AllowArmingWithoutFix   bool       `yaml:"allow_arming_without_fix"`
	UseMag                  bool       `yaml:"use_mag"`
	TargetLandingAltitudeM  float64    `yaml:"target_landing_altitude_m"`
	AltitudeMode            AltitudeMode `yaml:"altitude_mode"`
	AscendRateCmS           float64    `yaml:"ascend_rate_cm_s"`
	DescendRateCmS          float64    `yaml:"descend_rate_cm_s"`
	RescueAltitudeBufferM   float64    `yaml:"rescue_altitude_buffer_m"`
	RollMix                 float64    `yaml:"roll_mix"`
	YawControlReversed      bool       `yaml:"yaw_control_reversed"`
	GPSMinimumSats          int        `yaml:"gps_minimum_sats"`

	// PWM_RANGE_MIN/MAX and minCheck bound the throttle rescale exposed to
	// the mixer via GetThrottle(); see state.go.
	PWMRangeMin float64 `yaml:"pwm_range_min"`
	PWMRangeMax float64 `yaml:"pwm_range_max"`
	MinCheck    float64 `yaml:"min_check"`
}

// DefaultConfig returns the parameter defaults from spec.md §3, mirroring
// DefaultBatteryConfig's role in the teacher.
func DefaultConfig() Config {
	return Config{
		AngleDeg:               32,
		InitialAltitudeM:       30,
		DescentDistanceM:       20,
		RescueGroundspeedCmS:   500,
		ThrottleP:              20,
		ThrottleI:              20,
		ThrottleD:              10,
		VelP:                   6,
		VelI:                   20,
		VelD:                   70,
		YawP:                   25,
		ThrottleMin:            1100,
		ThrottleMax:            1600,
		ThrottleHover:          1275,
		SanityChecks:           SanityFSOnly,
		MinRescueDthM:          30,
		AllowArmingWithoutFix:  false,
		UseMag:                 true,
		TargetLandingAltitudeM: 5,
		AltitudeMode:           AltitudeModeMaxAlt,
		AscendRateCmS:          500,
		DescendRateCmS:         125,
		RescueAltitudeBufferM:  10,
		RollMix:                100,
		YawControlReversed:     false,
		GPSMinimumSats:         8,
		PWMRangeMin:            1000,
		PWMRangeMax:            2000,
		MinCheck:               1050,
	}
}

// HalfAngleDeg is the reduced pitch/roll authority used while climbing and
// rotating toward home (§4.3).
func (c Config) HalfAngleDeg() float64 { return c.AngleDeg / 2 }
