package rescue

// watchdogState is the Sanity Watchdog's persistent memory across ticks,
// grounded on redundancy.SensorVoter's failover-counter idiom: escalate
// after N consecutive bad samples rather than on a single glitch.
type watchdogState struct {
	accumSeconds        float64
	prevAltitudeCm      float64
	secondsLowSats      float64
	secondsDoingNothing float64
}

// stepWatchdog implements the Sanity Watchdog (spec.md §4.5). tickSeconds is
// the elapsed wall time since the previous call, used to gate the 1 Hz
// checks independent of the GPS sample rate.
func (s *State) stepWatchdog(tickSeconds float64) {
	if s.phase == PhaseIdle {
		s.failure = FailureHealthy
		return
	}

	if s.coll.Failsafe != nil && s.coll.Failsafe.CrashFlipDetected() {
		s.failure = FailureCrashFlipDetected
	} else if !s.sensors.Healthy {
		s.failure = FailureGPSLost
	}

	if s.failure != FailureHealthy {
		s.applySanityPolicy()
	}

	s.watchdog.accumSeconds += tickSeconds
	if s.watchdog.accumSeconds < 1.0 {
		return
	}
	s.watchdog.accumSeconds -= 1.0

	switch s.phase {
	case PhaseFlyHome:
		if s.sensors.VelocityToHomeCmS < 0.5*s.intent.TargetVelocityCmS {
			s.intent.SecondsFailing = clampSecondsFailing(s.intent.SecondsFailing + 1)
		} else {
			s.intent.SecondsFailing = clampSecondsFailing(s.intent.SecondsFailing - 1)
		}
		if s.intent.SecondsFailing >= 20 {
			if s.cfg.UseMag && !s.magDisabled {
				s.magDisabled = true
				s.intent.SecondsFailing = 0
				s.log.WithFields(logFields(s)).Warn("rescue: fly-home stalled, disabling magnetometer retry")
			} else {
				s.failure = FailureStalled
			}
		}
	case PhaseAttainAlt:
		delta := s.sensors.CurrentAltitudeCm - s.watchdog.prevAltitudeCm
		if delta > 0.5*s.cfg.AscendRateCmS {
			s.intent.SecondsFailing = clampF(s.intent.SecondsFailing-1, 0, 10)
		} else {
			s.intent.SecondsFailing = clampF(s.intent.SecondsFailing+1, 0, 10)
		}
		if s.intent.SecondsFailing >= 10 {
			s.phase = PhaseAbort
		}
	case PhaseDescent, PhaseLanding:
		delta := s.watchdog.prevAltitudeCm - s.sensors.CurrentAltitudeCm
		if delta > 0.5*s.cfg.DescendRateCmS {
			s.intent.SecondsFailing = clampF(s.intent.SecondsFailing-1, 0, 10)
		} else {
			s.intent.SecondsFailing = clampF(s.intent.SecondsFailing+1, 0, 10)
		}
		if s.intent.SecondsFailing >= 10 {
			s.phase = PhaseAbort
		}
	case PhaseDoNothing:
		s.watchdog.secondsDoingNothing++
		if s.watchdog.secondsDoingNothing >= 10 {
			s.phase = PhaseAbort
		}
	}
	s.watchdog.prevAltitudeCm = s.sensors.CurrentAltitudeCm

	if s.sensors.NumSat < s.cfg.GPSMinimumSats {
		s.watchdog.secondsLowSats = clampF(s.watchdog.secondsLowSats+1, 0, 10)
	} else {
		s.watchdog.secondsLowSats = clampF(s.watchdog.secondsLowSats-1, 0, 10)
	}
	if s.watchdog.secondsLowSats >= 10 {
		s.failure = FailureLowSats
	}
}

// applySanityPolicy implements the policy matrix of spec.md §7.
func (s *State) applySanityPolicy() {
	radioAlive := s.coll.Failsafe == nil || s.coll.Failsafe.RadioLinkAlive()
	switch s.cfg.SanityChecks {
	case SanityOn:
		s.phase = PhaseAbort
	case SanityFSOnly:
		if radioAlive {
			s.phase = PhaseDoNothing
		} else {
			s.phase = PhaseAbort
		}
	default: // SanityOff
		s.phase = PhaseDoNothing
	}
}
