package rescue

// DebugChannels mirrors the original firmware's DEBUG_RTH / DEBUG_GPS_RESCUE_*
// debug slots (SPEC_FULL.md §6), field order preserved so a telemetry harness
// can surface them without re-deriving semantics. Shape follows the teacher's
// livefeed.TelemetryMessage: a flat struct of named float64 fields with json
// tags for wire transport.
type DebugChannels struct {
	// Heading: yaw rate*10, roll deg*100, yaw*10, direction-to-home*10.
	HeadingYawRateX10  float64 `json:"heading_yaw_rate_x10"`
	HeadingRollDegX100 float64 `json:"heading_roll_deg_x100"`
	HeadingYawX10      float64 `json:"heading_yaw_x10"`
	HeadingDirX10      float64 `json:"heading_dir_x10"`

	// Velocity: P and D pitch-adjustment terms (deg*100), actual and target
	// velocity to home (cm/s).
	VelocityP      float64 `json:"velocity_p"`
	VelocityD      float64 `json:"velocity_d"`
	VelocityActual float64 `json:"velocity_actual"`
	VelocityTarget float64 `json:"velocity_target"`

	// Throttle PID: P, D, current altitude, target altitude.
	ThrottleP           float64 `json:"throttle_p"`
	ThrottleD           float64 `json:"throttle_d"`
	ThrottleCurrentAlt  float64 `json:"throttle_current_alt_cm"`
	ThrottleTargetAlt   float64 `json:"throttle_target_alt_cm"`

	// Tracking: distance to home (m), ground speed (cm/s).
	TrackingDistanceM   float64 `json:"tracking_distance_m"`
	TrackingGroundSpeed float64 `json:"tracking_ground_speed_cm_s"`

	// RTH: pitch bias, phase, failure, secondsFailing*100 + secondsLowSats.
	RTHPitch          float64 `json:"rth_pitch_deg_x100"`
	RTHPhase          Phase   `json:"rth_phase"`
	RTHFailure        Failure `json:"rth_failure"`
	RTHFailCounterSum float64 `json:"rth_fail_counter_sum"`
}
