package main

import (
	"sync"

	"github.com/arobi/valkyrie-rescue/internal/rescue"
)

// stubPilot is a fixed-throttle PilotInput: the harness has no RC receiver,
// so it reports a constant stick position the way a bench rig would with
// the throttle held at a known value.
type stubPilot struct {
	pwm float64
}

func (p *stubPilot) ThrottlePWM() float64 { return p.pwm }

// stubArming tracks arm state in memory; there is no real ESC/motor output
// to gate, so Disarm just flips a flag the harness reads each tick to count
// disarms.
type stubArming struct {
	mu                  sync.RWMutex
	armed               bool
	offsetApplied       bool
	armSwitchDisabled   bool
	lastDisarmReason    rescue.DisarmReason
}

func (a *stubArming) Armed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.armed
}

func (a *stubArming) AltitudeOffsetApplied() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.offsetApplied
}

func (a *stubArming) Disarm(reason rescue.DisarmReason) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armed = false
	a.lastDisarmReason = reason
}

func (a *stubArming) SetArmSwitchDisabled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armSwitchDisabled = true
}

// stubFailsafe lets the /api/v1/rescue/on and /off HTTP handlers toggle
// rescue mode directly, standing in for the host's real failsafe/radio-link
// monitor (out of scope per spec.md §1).
type stubFailsafe struct {
	mu          sync.RWMutex
	rescueMode  bool
	radioAlive  bool
	crashFlip   bool
}

func (f *stubFailsafe) RescueModeRequested() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rescueMode
}

func (f *stubFailsafe) RadioLinkAlive() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.radioAlive
}

func (f *stubFailsafe) CrashFlipDetected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.crashFlip
}

func (f *stubFailsafe) setRescueMode(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescueMode = on
}
