package rescue

// The interfaces below are the module's only view of the outside world
// (spec.md §6, §1 "deliberately out of scope"). Each is deliberately as
// narrow as the one capability rescue needs from it, the same shape as the
// teacher's failsafe.FlightController interface.

// AttitudeSource is the external attitude estimator.
type AttitudeSource interface {
	// YawDeciDeg returns current yaw in deg*10.
	YawDeciDeg() float64
	// CosTilt returns cos(tilt) used for throttle tilt compensation.
	CosTilt() float64
}

// AltitudeSource is the external barometer/altitude estimator.
type AltitudeSource interface {
	// AltitudeCm returns the current estimated altitude in cm.
	AltitudeCm() float64
}

// AccelSource is the external accelerometer, read only during LANDING.
type AccelSource interface {
	// AccelG returns the per-axis acceleration in g (ax, ay, az).
	AccelG() (ax, ay, az float64)
}

// GPSSource is the external GPS driver.
type GPSSource interface {
	Healthy() bool
	HasHomeFix() bool
	Has3DFix() bool
	NumSat() int
	DistanceToHomeCm() float64
	GroundSpeedCmS() float64
	DirectionToHomeDeciDeg() float64
	// NewGPSData reports whether a fresh GPS sample is available this tick.
	// The flag is read (and may be read many times) throughout the tick;
	// the dispatcher clears it at the end of the tick via ClearNewGPSData,
	// per spec.md §4.1 step 8.
	NewGPSData() bool
	// ClearNewGPSData clears the new-sample edge. Called exactly once per
	// tick, by the dispatcher.
	ClearNewGPSData()
}

// PilotInput is the RC input path, read only to pass pilot throttle through
// while idle.
type PilotInput interface {
	ThrottlePWM() float64
}

// ArmingController is the arming/disarming subsystem.
type ArmingController interface {
	Armed() bool
	AltitudeOffsetApplied() bool
	Disarm(reason DisarmReason)
	SetArmSwitchDisabled()
}

// FailsafeSource reports the radio link and crash-flip state; it is also
// the thing that decides *when* rescue mode turns on (out of scope here —
// rescue only reads its current state).
type FailsafeSource interface {
	RescueModeRequested() bool
	RadioLinkAlive() bool
	CrashFlipDetected() bool
}

// Collaborators bundles every external dependency the dispatcher reads each
// tick. A host wires one concrete instance of each.
type Collaborators struct {
	Attitude AttitudeSource
	Altitude AltitudeSource
	Accel    AccelSource
	GPS      GPSSource
	Pilot    PilotInput
	Arming   ArmingController
	Failsafe FailsafeSource
}
