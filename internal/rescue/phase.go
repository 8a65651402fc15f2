package rescue

// stepPhase drives the phase machine (spec.md §4.3). It is called once per
// tick, after the sensor aggregator and before the watchdog, per the
// dispatcher's fixed order.
func (s *State) stepPhase(newGPS bool) {
	switch s.phase {
	case PhaseIdle:
		s.idleTasks(newGPS)
	case PhaseInitialize:
		s.enterFromInitialize()
	case PhaseAttainAlt:
		if newGPS {
			s.stepAttainAlt()
		}
	case PhaseRotate:
		if newGPS {
			s.stepRotate()
		}
	case PhaseFlyHome:
		if newGPS {
			s.stepFlyHome()
		}
	case PhaseDescent:
		if newGPS {
			s.stepDescent()
		}
	case PhaseLanding:
		if newGPS {
			s.intent.TargetAltitudeCm -= s.sensors.DescendStepCm
		}
		if s.sensors.AccMagnitudeG > 2.0 {
			s.collaboratorsDisarmOnImpact()
		}
	case PhaseComplete:
		s.rescueStop()
	case PhaseAbort:
		s.doAbort()
	case PhaseDoNothing:
		// Controller and watchdog handle DO_NOTHING; nothing to do here.
	}
}

// collaboratorsDisarmOnImpact is LANDING's impact-disarm path: it makes the
// same host-facing calls as doAbort, then moves to COMPLETE.
func (s *State) collaboratorsDisarmOnImpact() {
	if s.coll.Arming != nil {
		s.coll.Arming.SetArmSwitchDisabled()
		s.coll.Arming.Disarm(DisarmReasonGPSRescue)
	}
	s.phase = PhaseComplete
	s.log.WithFields(logFields(s)).Info("rescue: impact detected in LANDING, disarming")
}

func (s *State) doAbort() {
	if s.coll.Arming != nil {
		s.coll.Arming.SetArmSwitchDisabled()
		s.coll.Arming.Disarm(DisarmReasonGPSRescue)
	}
	s.log.WithFields(logFields(s)).Warn("rescue: ABORT")
	s.rescueStop()
}

// rescueStart transitions IDLE -> INITIALIZE. Called by the dispatcher when
// rescue mode is newly requested.
func (s *State) rescueStart() {
	s.phase = PhaseInitialize
	s.failure = FailureHealthy
	s.agg.Reset()
	s.ctrl = controllerState{}
	s.watchdog = watchdogState{secondsLowSats: 5, prevAltitudeCm: s.sensors.CurrentAltitudeCm}
	s.magDisabled = false
	s.log.WithFields(logFields(s)).Info("rescue: start")
}

// rescueStop transitions to IDLE. Called when rescue mode is turned off,
// and from COMPLETE/ABORT.
func (s *State) rescueStop() {
	if s.phase != PhaseIdle {
		s.log.WithFields(logFields(s)).Info("rescue: stop")
	}
	s.phase = PhaseIdle
}

// idleTasks implements IDLE's bookkeeping (§4.3).
func (s *State) idleTasks(newGPS bool) {
	s.failure = FailureHealthy

	if s.coll.Arming == nil || !s.coll.Arming.Armed() {
		s.sensors.MaxAltitudeCm = 0
		return
	}
	if !s.coll.Arming.AltitudeOffsetApplied() {
		return
	}

	if s.sensors.CurrentAltitudeCm > s.sensors.MaxAltitudeCm {
		s.sensors.MaxAltitudeCm = s.sensors.CurrentAltitudeCm
	}
	s.intent.TargetAltitudeCm = s.sensors.CurrentAltitudeCm

	if !newGPS {
		return
	}

	switch s.cfg.AltitudeMode {
	case AltitudeModeFixedAlt:
		s.intent.ReturnAltitudeCm = s.cfg.InitialAltitudeM * 100
	case AltitudeModeCurrentAlt:
		s.intent.ReturnAltitudeCm = s.sensors.CurrentAltitudeCm + s.cfg.RescueAltitudeBufferM*100
	default: // AltitudeModeMaxAlt
		s.intent.ReturnAltitudeCm = s.sensors.MaxAltitudeCm + s.cfg.RescueAltitudeBufferM*100
	}
	s.intent.DescentDistanceM = clampF(s.sensors.DistanceToHomeM, 10, s.cfg.DescentDistanceM)
}

// enterFromInitialize implements INITIALIZE (§4.3). It runs every tick (not
// gated on newGPS) because it must react immediately to a missing home
// point, but its substantive transitions only fire once per rescue since
// the phase itself changes on the first pass.
func (s *State) enterFromInitialize() {
	if s.coll.GPS == nil || !s.coll.GPS.HasHomeFix() {
		s.failure = FailureNoHomePoint
		return
	}

	if s.sensors.DistanceToHomeM < s.cfg.MinRescueDthM {
		s.phase = PhaseLanding
		s.intent.TargetAltitudeCm -= s.sensors.DescendStepCm
		s.log.WithFields(logFields(s)).Info("rescue: too close, landing directly")
		return
	}

	s.phase = PhaseAttainAlt
	s.intent.SecondsFailing = 0
	s.intent.UpdateYaw = true
	s.intent.TargetVelocityCmS = 0
	s.intent.PitchAngleLimitDeg = s.cfg.HalfAngleDeg()
	s.intent.RollAngleLimitDeg = 0
	s.startedLow = s.sensors.CurrentAltitudeCm <= s.intent.ReturnAltitudeCm
	s.log.WithFields(logFields(s)).Info("rescue: attaining altitude")
}

func (s *State) stepAttainAlt() {
	if s.startedLow {
		s.intent.TargetAltitudeCm += s.sensors.AscendStepCm
		if s.intent.TargetAltitudeCm >= s.intent.ReturnAltitudeCm {
			s.intent.TargetAltitudeCm = s.intent.ReturnAltitudeCm
		}
		if s.sensors.CurrentAltitudeCm >= s.intent.ReturnAltitudeCm {
			s.enterRotate()
		}
	} else {
		s.intent.TargetAltitudeCm -= s.sensors.DescendStepCm
		if s.intent.TargetAltitudeCm <= s.intent.ReturnAltitudeCm {
			s.intent.TargetAltitudeCm = s.intent.ReturnAltitudeCm
		}
		if s.sensors.CurrentAltitudeCm <= s.intent.ReturnAltitudeCm {
			s.enterRotate()
		}
	}
}

func (s *State) enterRotate() {
	s.intent.TargetAltitudeCm = s.intent.ReturnAltitudeCm
	s.phase = PhaseRotate
	s.log.WithFields(logFields(s)).Info("rescue: rotating to home heading")
}

func (s *State) stepRotate() {
	if s.sensors.AbsErrorAngle < 60 {
		s.intent.TargetVelocityCmS = s.cfg.RescueGroundspeedCmS
		s.intent.PitchAngleLimitDeg = s.cfg.AngleDeg
	}
	if s.sensors.AbsErrorAngle < 15 {
		s.phase = PhaseFlyHome
		s.intent.RollAngleLimitDeg = s.cfg.AngleDeg
		s.intent.SecondsFailing = 0
		s.log.WithFields(logFields(s)).Info("rescue: flying home")
	}
}

func (s *State) stepFlyHome() {
	if s.sensors.DistanceToHomeM <= s.intent.DescentDistanceM {
		s.phase = PhaseDescent
		s.intent.SecondsFailing = 0
		s.log.WithFields(logFields(s)).Info("rescue: descending")
	}
}

func (s *State) stepDescent() {
	if s.sensors.CurrentAltitudeCm < s.cfg.TargetLandingAltitudeM*100 {
		s.phase = PhaseLanding
		s.intent.TargetAltitudeCm -= s.sensors.DescendStepCm
		s.intent.SecondsFailing = 0
		s.intent.TargetVelocityCmS = 0
		s.intent.PitchAngleLimitDeg = s.cfg.HalfAngleDeg()
		s.intent.RollAngleLimitDeg = 0
		s.log.WithFields(logFields(s)).Info("rescue: landing")
		return
	}

	d := s.sensors.DistanceToHomeM - 2
	if d < 0 {
		d = 0
	}
	p := clampF(d/s.intent.DescentDistanceM, 0, 1)
	s.intent.TargetAltitudeCm -= s.sensors.DescendStepCm * (1 + p)
	s.intent.TargetVelocityCmS = s.cfg.RescueGroundspeedCmS * p
	s.intent.RollAngleLimitDeg = s.cfg.AngleDeg * p
}
