package rescue

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestIdleOutputsNeutralAndPassesPilotThrottle(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.pilotThrottle = 1500

	st.Update(0.01, false, w.collaborators())

	pitch, roll := st.GetPitchRollBias()
	if pitch != 0 || roll != 0 || st.GetYawRate() != 0 {
		t.Fatalf("IDLE should output zero angle biases, got pitch=%v roll=%v yaw=%v", pitch, roll, st.GetYawRate())
	}
	if st.RescueThrottlePWM() != 1500 {
		t.Fatalf("IDLE should pass pilot throttle through, got %v", st.RescueThrottlePWM())
	}
	if st.Phase() != PhaseIdle {
		t.Fatalf("expected IDLE, got %v", st.Phase())
	}
}

func TestMaxAltitudeMonotoneWhileArmedResetsOnDisarm(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.altOffsetOK = true

	w.altitudeCm = 1000
	st.Update(0.01, false, w.collaborators())
	if st.Sensors().MaxAltitudeCm != 1000 {
		t.Fatalf("expected max altitude 1000, got %v", st.Sensors().MaxAltitudeCm)
	}

	w.altitudeCm = 800
	st.Update(0.01, false, w.collaborators())
	if st.Sensors().MaxAltitudeCm != 1000 {
		t.Fatalf("max altitude should not decrease, got %v", st.Sensors().MaxAltitudeCm)
	}

	w.altitudeCm = 1500
	st.Update(0.01, false, w.collaborators())
	if st.Sensors().MaxAltitudeCm != 1500 {
		t.Fatalf("max altitude should track new high, got %v", st.Sensors().MaxAltitudeCm)
	}

	w.armed = false
	st.Update(0.01, false, w.collaborators())
	if st.Sensors().MaxAltitudeCm != 0 {
		t.Fatalf("max altitude should reset to 0 when disarmed, got %v", st.Sensors().MaxAltitudeCm)
	}
}

func TestNormalize180StaysInRange(t *testing.T) {
	cases := []float64{0, 180, 180.1, -180, -180.1, 359, -359}
	for _, deg := range cases {
		n := normalize180(deg)
		if n <= -180 || n > 180 {
			t.Fatalf("normalize180(%v) = %v out of (-180,180]", deg, n)
		}
	}
}

func TestInitializeResetsControllerAndWatchdogMemory(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()

	// Poison controller/watchdog memory before the rescue starts.
	st.ctrl.velocityI = 500
	st.ctrl.throttleI = 100
	st.watchdog.secondsLowSats = 7

	w.rescueModeOn = true
	st.Update(0.01, true, w.collaborators())

	if st.ctrl.velocityI != 0 || st.ctrl.throttleI != 0 {
		t.Fatalf("expected controller memory reset on rescue start, got velI=%v throttleI=%v", st.ctrl.velocityI, st.ctrl.throttleI)
	}
	if st.watchdog.secondsLowSats != 5 {
		t.Fatalf("expected watchdog memory reset to its INITIALIZE baseline, got %v", st.watchdog.secondsLowSats)
	}
}

func TestDoNothingOutputsHoverAndEscalatesAfterTenSeconds(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.homeFix = false // forces NO_HOME_POINT -> policy -> DO_NOTHING under FS_ONLY with radio alive
	w.rescueModeOn = true

	st.Update(0.01, true, w.collaborators())
	st.Update(1.0, true, w.collaborators())

	if st.Phase() != PhaseDoNothing {
		t.Fatalf("expected DO_NOTHING after a failure under FS_ONLY with radio alive, got %v", st.Phase())
	}

	pitch, roll := st.GetPitchRollBias()
	if pitch != 0 || roll != 0 || st.GetYawRate() != 0 {
		t.Fatalf("DO_NOTHING should output neutral attitude, got pitch=%v roll=%v yaw=%v", pitch, roll, st.GetYawRate())
	}
	if st.RescueThrottlePWM() != DefaultConfig().ThrottleHover {
		t.Fatalf("DO_NOTHING should hold hover throttle, got %v", st.RescueThrottlePWM())
	}

	for i := 0; i < 10; i++ {
		st.Update(1.0, true, w.collaborators())
	}
	if st.Phase() != PhaseAbort && st.Phase() != PhaseIdle {
		t.Fatalf("expected ABORT (then IDLE via rescueStop) after 10s in DO_NOTHING, got %v", st.Phase())
	}
}

func TestTooCloseEntersLandingDirectly(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.altitudeCm = 1000

	// Establish a real 10 m home distance while still in IDLE (< minRescueDth=30m).
	w.gpsTick(10, 0, 0, 0)
	st.Update(0.01, false, w.collaborators())

	w.rescueModeOn = true
	st.Update(0.01, true, w.collaborators())

	if st.Phase() != PhaseLanding {
		t.Fatalf("expected LANDING directly when starting inside minRescueDth, got %v", st.Phase())
	}
}

func TestNoHomePointEscalatesToAbortUnderFSOnly(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.homeFix = false
	w.radioAlive = true
	w.rescueModeOn = true

	st.Update(0.01, true, w.collaborators())
	if st.FailureState() != FailureNoHomePoint {
		t.Fatalf("expected NO_HOME_POINT, got %v", st.FailureState())
	}

	for i := 0; i < 11; i++ {
		st.Update(1.0, true, w.collaborators())
	}
	if !w.disarmed {
		t.Fatalf("expected disarm to be called after DO_NOTHING ceiling is hit")
	}
}

func TestYawReversalFlipsSignAndAttenuatesRoll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.YawControlReversed = true
	st := New(cfg, testLogger())
	w := newFakeWorld()

	// Force the controller's live-computation branch (any phase but IDLE,
	// INITIALIZE, DO_NOTHING) without driving the whole phase machine there.
	st.phase = PhaseRotate
	st.intent.UpdateYaw = true
	st.intent.RollAngleLimitDeg = cfg.AngleDeg

	// errorAngle = yaw(30) - direction(0) = +30 deg.
	w.gpsTick(200, 0, 0, 30)
	st.Update(0.01, true, w.collaborators())

	yaw := st.GetYawRate()
	if yaw >= 0 {
		t.Fatalf("expected reversed yaw to be negative, got %v", yaw)
	}
	if yaw != -75 {
		t.Fatalf("expected raw clamp(30*25*0.1,+-90)=75 negated to -75, got %v", yaw)
	}
	// Roll uses the raw (pre-reversal) yaw: -75 * rollMix(100) * (1-0.75).
	if _, roll := st.GetPitchRollBias(); roll != -1875 {
		t.Fatalf("expected roll bias opposite raw yaw, attenuated to 0.25: -1875, got %v", roll)
	}
}

func TestLandingImpactDisarmsAndCompletes(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.rescueModeOn = true
	st.phase = PhaseLanding

	st.Update(0.01, true, w.collaborators())
	if st.Phase() != PhaseLanding {
		t.Fatalf("should still be LANDING before impact, got %v", st.Phase())
	}

	w.ax, w.ay, w.az = 3.0, 0, 0 // |a| = 3g > 2g threshold
	st.Update(0.01, true, w.collaborators())

	if !w.disarmed {
		t.Fatalf("expected disarm on impact in LANDING")
	}
	if st.Phase() != PhaseComplete && st.Phase() != PhaseIdle {
		t.Fatalf("expected COMPLETE (then IDLE via rescueStop), got %v", st.Phase())
	}
}

func TestUniversalOutputBounds(t *testing.T) {
	st := New(DefaultConfig(), testLogger())
	w := newFakeWorld()
	w.altitudeCm = 1000

	// Seed a real 200 m home distance while still in IDLE so the first
	// rescue tick doesn't read a zero-valued distance as "too close".
	w.gpsTick(200, 0, 0, 0)
	st.Update(0.01, false, w.collaborators())

	w.rescueModeOn = true
	st.Update(0.01, true, w.collaborators())
	for i := 0; i < 50; i++ {
		w.gpsTick(float64(200-i*4), 100, 10, 5)
		w.altitudeCm += 50
		st.Update(0.1, true, w.collaborators())

		cfg := DefaultConfig()
		if st.RescueThrottlePWM() < cfg.ThrottleMin || st.RescueThrottlePWM() > cfg.ThrottleMax {
			t.Fatalf("throttle out of bounds: %v", st.RescueThrottlePWM())
		}
		if yaw := st.GetYawRate(); yaw < -90 || yaw > 90 {
			t.Fatalf("yaw rate out of bounds: %v", yaw)
		}
		if st.ctrl.velocityI < -1000 || st.ctrl.velocityI > 1000 {
			t.Fatalf("velocityI out of bounds: %v", st.ctrl.velocityI)
		}
		if st.ctrl.throttleI < -200 || st.ctrl.throttleI > 200 {
			t.Fatalf("throttleI out of bounds: %v", st.ctrl.throttleI)
		}
	}
}
