package rescue

import "testing"

// scenarioWorld drives fakeWorld under a perfect-tracking assumption: each
// GPS tick, altitude and distance move toward the controller's own targets
// by an amount bounded by the configured ascend/descend/groundspeed rates.
// This is not a flight model — it exists to walk the phase machine through a
// full rescue end-to-end the way montecarlo.go's Scenario/PassCriteria pairs
// drive a simulator, without reimplementing vehicle dynamics.
type scenarioWorld struct {
	*fakeWorld
	headingDeg   float64 // current yaw, degrees
	landingTicks int     // ticks spent in LANDING, for the touchdown-impact spike below
}

func newScenarioWorld() *scenarioWorld {
	return &scenarioWorld{fakeWorld: newFakeWorld()}
}

// tick advances the world by one GPS sample, tracking the rescue's own
// targets at the configured rates, and records the new sample via gpsTick.
func (w *scenarioWorld) tick(st *State, dtSeconds float64) {
	intent := st.Intent()
	sensors := st.Sensors()

	// Altitude tracks target, bounded by ascend/descend rate.
	targetAlt := intent.TargetAltitudeCm
	maxStep := st.cfg.AscendRateCmS * dtSeconds
	if targetAlt < w.altitudeCm {
		maxStep = st.cfg.DescendRateCmS * dtSeconds
	}
	if d := targetAlt - w.altitudeCm; d > maxStep {
		w.altitudeCm += maxStep
	} else if d < -maxStep {
		w.altitudeCm -= maxStep
	} else {
		w.altitudeCm = targetAlt
	}

	// Heading rotates toward the commanded yaw rate.
	w.headingDeg += st.GetYawRate() * dtSeconds
	w.headingDeg = normalize180(w.headingDeg)

	// Distance closes at the commanded groundspeed once heading is roughly
	// aligned toward home (errorAngle small); otherwise holds.
	distanceM := sensors.DistanceToHomeM
	if sensors.AbsErrorAngle < 60 {
		distanceM -= (intent.TargetVelocityCmS / 100.0) * dtSeconds
		if distanceM < 0 {
			distanceM = 0
		}
	}

	// direction to home is always 0 (home is "ahead"); errorAngle is then
	// just the heading itself, matching a craft that must rotate onto a
	// fixed bearing before making progress.
	w.gpsTick(distanceM, intent.TargetVelocityCmS, 0, w.headingDeg)

	// LANDING has no further progress to simulate once it has descended for
	// a tick or two; synthesize the touchdown impact spike a real craft
	// would report, the only way out of LANDING (phase.go's AccMagnitudeG >
	// 2.0 check).
	if st.Phase() == PhaseLanding {
		w.landingTicks++
		if w.landingTicks >= 2 {
			w.ax = 3.0
		}
	}
}

// runScenario ticks the dispatcher at a fixed rate until phase settles into
// one of stopPhases or maxTicks elapses, returning the final phase.
func runScenario(t *testing.T, st *State, w *scenarioWorld, dtSeconds float64, maxTicks int, stopPhases ...Phase) Phase {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		w.rescueModeOn = true
		if st.Phase() != PhaseIdle {
			w.tick(st, dtSeconds)
		}
		st.Update(dtSeconds, true, w.collaborators())
		for _, sp := range stopPhases {
			if st.Phase() == sp {
				return st.Phase()
			}
		}
	}
	return st.Phase()
}

// S1: a normal rescue from 10 m up and 300 m out climbs, rotates, flies
// home, descends, and lands without ever hitting ABORT or DO_NOTHING.
func TestScenarioNormalRescue(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newScenarioWorld()
	w.altitudeCm = 1000
	w.headingDeg = 180 // facing away from home

	// Seed a real home-distance sample while still IDLE.
	w.gpsTick(300, 0, 180, 180)
	st.Update(0.01, false, w.collaborators())

	final := runScenario(t, st, w, 0.5, 400, PhaseComplete, PhaseAbort, PhaseDoNothing)
	if final != PhaseComplete {
		t.Fatalf("expected a normal rescue to reach COMPLETE, got %v (failure=%v)", final, st.FailureState())
	}
}

// S2: starting inside minRescueDth skips straight to LANDING.
func TestScenarioTooCloseSkipsToLanding(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newScenarioWorld()
	w.altitudeCm = 500

	w.gpsTick(15, 0, 0, 0) // 15 m, inside the 30 m minimum
	st.Update(0.01, false, w.collaborators())

	w.rescueModeOn = true
	st.Update(0.01, true, w.collaborators())
	if st.Phase() != PhaseLanding {
		t.Fatalf("expected immediate LANDING, got %v", st.Phase())
	}

	final := runScenario(t, st, w, 0.5, 200, PhaseComplete, PhaseAbort)
	if final != PhaseComplete {
		t.Fatalf("expected LANDING to finish at COMPLETE, got %v", final)
	}
}

// S3: no home fix ever arrives; under FS_ONLY with the radio alive the craft
// holds in DO_NOTHING and is aborted once the 10 s ceiling trips.
func TestScenarioNoHomePointAborts(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newScenarioWorld()
	w.homeFix = false

	final := runScenario(t, st, w, 1.0, 30, PhaseIdle)
	if final != PhaseIdle {
		t.Fatalf("expected DO_NOTHING to escalate to ABORT and settle at IDLE, got %v", final)
	}
	if !w.disarmed {
		t.Fatalf("expected the craft to be disarmed once the DO_NOTHING ceiling tripped")
	}
}

// S4: fly-home never makes progress (groundspeed pinned to zero); after 20 s
// of stalling with UseMag on, the craft disables the magnetometer and keeps
// trying rather than aborting outright.
func TestScenarioStallDisablesMagBeforeAborting(t *testing.T) {
	cfg := DefaultConfig()
	st := New(cfg, testLogger())
	w := newScenarioWorld()
	w.altitudeCm = 3000

	w.gpsTick(300, 0, 0, 0) // already aligned, already at altitude
	st.Update(0.01, false, w.collaborators())
	w.altitudeCm = cfg.InitialAltitudeM*100 + cfg.RescueAltitudeBufferM*100

	w.rescueModeOn = true
	for i := 0; i < 40 && st.Phase() != PhaseFlyHome; i++ {
		w.gpsTick(300, 0, 0, 0)
		st.Update(0.5, true, w.collaborators())
	}
	if st.Phase() != PhaseFlyHome {
		t.Fatalf("expected the scenario to reach FLY_HOME, got %v", st.Phase())
	}

	for i := 0; i < 25; i++ {
		w.gpsTick(300, 0, 0, 0) // distance never closes: simulated stall
		st.Update(1.0, true, w.collaborators())
		if st.DisableMag() {
			break
		}
	}
	if !st.DisableMag() {
		t.Fatalf("expected a stalled FLY_HOME to disable the magnetometer before aborting")
	}
	if st.Phase() == PhaseAbort {
		t.Fatalf("mag-disable should buy another attempt, not an immediate ABORT")
	}
}

// S5: satellite count stays under the minimum throughout; the watchdog
// should eventually report LOWSATS.
func TestScenarioLowSatsReported(t *testing.T) {
	cfg := DefaultConfig()
	st := New(cfg, testLogger())
	w := newScenarioWorld()
	w.altitudeCm = 1000
	w.numSat = cfg.GPSMinimumSats - 1

	w.gpsTick(300, 0, 0, 0)
	st.Update(0.01, false, w.collaborators())

	w.rescueModeOn = true
	sawLowSats := false
	for i := 0; i < 15; i++ {
		w.gpsTick(300, 0, 0, 0)
		st.Update(1.0, true, w.collaborators())
		if st.FailureState() == FailureLowSats {
			sawLowSats = true
			break
		}
	}
	if !sawLowSats {
		t.Fatalf("expected sustained low satellite count to report LOWSATS within 15s")
	}
}

// S6: with yaw control reversed, a craft facing away from home still turns
// onto the home bearing (ABS error angle converges toward zero) rather than
// spinning away from it.
func TestScenarioYawReversalStillConverges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.YawControlReversed = true
	st := New(cfg, testLogger())
	w := newScenarioWorld()
	w.altitudeCm = cfg.InitialAltitudeM * 100
	w.headingDeg = 170

	w.gpsTick(300, 0, 0, 170)
	st.Update(0.01, false, w.collaborators())

	w.rescueModeOn = true
	var firstAbsErr, lastAbsErr float64
	for i := 0; i < 60; i++ {
		w.tick(st, 0.5)
		st.Update(0.5, true, w.collaborators())
		if i == 0 {
			firstAbsErr = st.Sensors().AbsErrorAngle
		}
		lastAbsErr = st.Sensors().AbsErrorAngle
		if st.Phase() == PhaseFlyHome || st.Phase() == PhaseDescent || st.Phase() == PhaseLanding || st.Phase() == PhaseComplete {
			break
		}
	}
	if lastAbsErr >= firstAbsErr {
		t.Fatalf("expected heading error to shrink under reversed yaw control, went from %v to %v", firstAbsErr, lastAbsErr)
	}
}
