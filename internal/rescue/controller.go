package rescue

import "math"

// controllerState is the Attitude & Throttle Controller's persistent memory
// across ticks: integrator accumulators and derivative-smoothing history,
// grounded on ExtendedKalmanFilter's receiver-held state/covariance pattern
// (a filter whose history must survive calls but can be wiped by Reset).
// Reset on entry to INITIALIZE (spec.md §3 "Controller history"); persists
// otherwise.
type controllerState struct {
	velocityI            float64
	prevVelocityError    float64
	prevVelD             float64
	prevPitchAdjustment  float64

	throttleI          float64
	prevAltitudeError  float64
	prevThrottleDRaw   float64
	prevThrottleDAvg   float64
	prevThrottleDSmoo  float64
}

// stepController implements the Attitude & Throttle Controller (spec.md
// §4.4). It runs every tick but only recomputes outputs on a new GPS
// sample; outputs otherwise hold their previous value.
func (s *State) stepController(newGPS bool) {
	switch s.phase {
	case PhaseIdle:
		s.outPitchBiasDeciDeg = 0
		s.outRollBiasDeciDeg = 0
		s.outYawRateDegS = 0
		if s.coll.Pilot != nil {
			s.outThrottlePWM = s.coll.Pilot.ThrottlePWM()
		} else {
			s.outThrottlePWM = s.cfg.ThrottleHover
		}
		return
	case PhaseInitialize:
		s.ctrl = controllerState{}
		return
	case PhaseDoNothing:
		s.outPitchBiasDeciDeg = 0
		s.outRollBiasDeciDeg = 0
		s.outYawRateDegS = 0
		s.outThrottlePWM = s.cfg.ThrottleHover
		return
	}

	if !newGPS {
		return
	}

	k := s.sensors.GPSDataIntervalSeconds * 10

	// --- Yaw + roll mix ---
	rescueYaw := clampF(s.sensors.ErrorAngle*s.cfg.YawP*0.1, -90, 90)
	rollAttenuator := clampF(1-math.Abs(rescueYaw)*0.01, 0, 1)
	rollLimit := s.intent.RollAngleLimitDeg * 100
	rollBias := clampF(-rescueYaw*s.cfg.RollMix*rollAttenuator, -rollLimit, rollLimit)

	if s.cfg.YawControlReversed {
		rescueYaw = -rescueYaw
	}
	if !s.intent.UpdateYaw {
		rescueYaw = 0
	}

	// --- Pitch via velocity PID ---
	velocityTargetLimiter := clampF((60-s.sensors.AbsErrorAngle)/60, 0, 1)
	velocityError := s.intent.TargetVelocityCmS*velocityTargetLimiter - s.sensors.VelocityToHomeCmS

	pP := velocityError * s.cfg.VelP

	// Open Question #1 (see DESIGN.md): the original firmware attenuates
	// the existing integrator by targetVelocityCmS/targetVelocityCmS before
	// accumulating the new term. That ratio is always 1 (or undefined at
	// targetVelocityCmS==0, guarded here) — preserved literally as a no-op
	// rather than "fixed" into a real attenuation.
	if s.intent.TargetVelocityCmS != 0 {
		s.ctrl.velocityI *= s.intent.TargetVelocityCmS / s.intent.TargetVelocityCmS
	}
	s.ctrl.velocityI = clampF(s.ctrl.velocityI+0.01*s.cfg.VelI*velocityError*k, -1000, 1000)
	pI := s.ctrl.velocityI

	velD := (velocityError - s.ctrl.prevVelocityError) / k
	velD = s.ctrl.prevVelD + s.sensors.FilterK*(velD-s.ctrl.prevVelD)
	s.ctrl.prevVelD = velD
	pD := velD * s.cfg.VelD

	pitchAdjustment := pP + pI + pD
	pitchAdjustment = clampF(pitchAdjustment,
		s.ctrl.prevPitchAdjustment-s.sensors.MaxPitchStep,
		s.ctrl.prevPitchAdjustment+s.sensors.MaxPitchStep)
	pitchAdjustment = 0.5 * (s.ctrl.prevPitchAdjustment + pitchAdjustment)
	s.ctrl.prevPitchAdjustment = pitchAdjustment
	s.ctrl.prevVelocityError = velocityError

	pitchLimit := s.intent.PitchAngleLimitDeg * 100
	pitchBias := clampF(pitchAdjustment, -pitchLimit, pitchLimit)

	// --- Throttle via altitude PID + jerk ---
	altitudeError := (s.intent.TargetAltitudeCm - s.sensors.CurrentAltitudeCm) * 0.01

	tP := s.cfg.ThrottleP * altitudeError
	s.ctrl.throttleI = clampF(s.ctrl.throttleI+0.01*s.cfg.ThrottleI*altitudeError*k, -200, 200)
	tI := s.ctrl.throttleI

	tDRaw := (altitudeError - s.ctrl.prevAltitudeError) / k
	jerk := 2 * (tDRaw - s.ctrl.prevThrottleDRaw)
	s.ctrl.prevThrottleDRaw = tDRaw
	tD := tDRaw + jerk
	tD = 0.5 * (s.ctrl.prevThrottleDAvg + tD)
	s.ctrl.prevThrottleDAvg = tD
	tD = s.ctrl.prevThrottleDSmoo + s.sensors.FilterK*(tD-s.ctrl.prevThrottleDSmoo)
	s.ctrl.prevThrottleDSmoo = tD
	tD = 10 * s.cfg.ThrottleD * tD

	s.ctrl.prevAltitudeError = altitudeError

	cosTilt := 1.0
	if s.coll.Attitude != nil {
		cosTilt = s.coll.Attitude.CosTilt()
	}
	tilt := (1 - cosTilt) * (s.cfg.ThrottleHover - 1000)

	throttleAdjustment := tP + tI + tD + tilt
	rescueThrottle := clampF(s.cfg.ThrottleHover+throttleAdjustment, s.cfg.ThrottleMin, s.cfg.ThrottleMax)

	s.outPitchBiasDeciDeg = pitchBias
	s.outRollBiasDeciDeg = rollBias
	s.outYawRateDegS = rescueYaw
	s.outThrottlePWM = rescueThrottle

	s.debug = DebugChannels{
		HeadingYawRateX10:  rescueYaw * 10,
		HeadingRollDegX100: rollBias,
		HeadingYawX10:      s.sensors.DirectionToHome*10 + s.sensors.ErrorAngle*10,
		HeadingDirX10:      s.sensors.DirectionToHome * 10,

		VelocityP:      pP,
		VelocityD:      pD,
		VelocityActual: s.sensors.VelocityToHomeCmS,
		VelocityTarget: s.intent.TargetVelocityCmS,

		ThrottleP:          tP,
		ThrottleD:          tD,
		ThrottleCurrentAlt: s.sensors.CurrentAltitudeCm,
		ThrottleTargetAlt:  s.intent.TargetAltitudeCm,

		TrackingDistanceM:   s.sensors.DistanceToHomeM,
		TrackingGroundSpeed: s.sensors.GroundSpeedCmS,

		RTHPitch:          pitchBias,
		RTHPhase:          s.phase,
		RTHFailure:        s.failure,
		RTHFailCounterSum: s.intent.SecondsFailing*100 + s.watchdog.secondsLowSats,
	}
}
