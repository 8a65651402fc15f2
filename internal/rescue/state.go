package rescue

import "github.com/sirupsen/logrus"

// State is the module-owned singleton the spec's design notes (§9) call for:
// every entry point (GetYawRate, GetThrottle, IsAvailable, DisableMag) reads it,
// and only the dispatcher's Update mutates it. A host holds exactly one
// State per vehicle; there is no re-entry.
type State struct {
	cfg Config
	log *logrus.Logger

	coll Collaborators

	phase   Phase
	failure Failure
	intent  Intent
	sensors Sensors

	startedLow bool

	agg       *Aggregator
	ctrl      controllerState
	watchdog  watchdogState
	avail     availabilityState

	magDisabled bool

	outPitchBiasDeciDeg float64
	outRollBiasDeciDeg  float64
	outYawRateDegS      float64
	outThrottlePWM      float64

	debug DebugChannels
}

// New constructs a State ready for IDLE.
func New(cfg Config, log *logrus.Logger) *State {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &State{
		cfg:     cfg,
		log:     log,
		phase:   PhaseIdle,
		failure: FailureHealthy,
		agg:     NewAggregator(),
	}
	return s
}

// Phase reports the current rescue phase (OSD/debug use).
func (s *State) Phase() Phase { return s.phase }

// FailureState reports the current sanity failure (OSD/debug use).
func (s *State) FailureState() Failure { return s.failure }

// Intent exposes a read-only copy of the current intent targets.
func (s *State) Intent() Intent { return s.intent }

// Sensors exposes a read-only copy of the latest sensor snapshot.
func (s *State) Sensors() Sensors { return s.sensors }

// GetYawRate returns the rescue yaw-rate setpoint in deg/s.
func (s *State) GetYawRate() float64 { return s.outYawRateDegS }

// RescueThrottlePWM returns the raw PWM throttle (pre-rescale), for
// telemetry/debug consumers that want the unscaled value.
func (s *State) RescueThrottlePWM() float64 { return s.outThrottlePWM }

// GetThrottle returns the normalized [0,1] throttle for the mixer, rescaled
// from the PWM-range rescueThrottle over [max(minCheck, PWM_RANGE_MIN), PWM_RANGE_MAX].
func (s *State) GetThrottle() float64 {
	lo := s.cfg.MinCheck
	if s.cfg.PWMRangeMin > lo {
		lo = s.cfg.PWMRangeMin
	}
	hi := s.cfg.PWMRangeMax
	if hi <= lo {
		return 0
	}
	return clampF((s.outThrottlePWM-lo)/(hi-lo), 0, 1)
}

// GetPitchRollBias returns the pitch/roll angle biases in deg*100 summed
// into the angle-mode targets by the host's PID mixer.
func (s *State) GetPitchRollBias() (pitch, roll float64) {
	return s.outPitchBiasDeciDeg, s.outRollBiasDeciDeg
}

// DisableMag reports whether the host should stop trusting the
// magnetometer: either it was never configured for use, or the watchdog's
// one-shot stall mitigation (§4.5) force-disabled it for this rescue. Only
// meaningful while a rescue is actually in progress (INITIALIZE..LANDING).
func (s *State) DisableMag() bool {
	return (!s.cfg.UseMag || s.magDisabled) && s.phase.InRescue()
}

// IsDisabled is the OSD "no home fix" indicator (spec.md §6): true whenever
// the GPS has not yet recorded a home point to rescue back to.
func (s *State) IsDisabled() bool {
	return s.coll.GPS == nil || !s.coll.GPS.HasHomeFix()
}

// IsConfigured reports whether rescue mode is wired into any failsafe
// procedure or mode-activation condition table. Those tables are owned by
// the host (out of scope per §1); this just evaluates the predicate given
// their current state.
func (s *State) IsConfigured(hasFailsafeProcedure, hasModeActivationCondition bool) bool {
	return hasFailsafeProcedure || hasModeActivationCondition
}

// DebugChannels returns the latest debug telemetry (§6).
func (s *State) DebugChannels() DebugChannels { return s.debug }
