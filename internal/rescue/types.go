// Package rescue implements the GPS return-to-home flight controller: a
// phase-driven state machine, cascaded attitude/throttle controllers, and a
// sanity watchdog that together fly a multirotor home and land it.
package rescue

// Phase is a stage of the rescue sequence. Values are ordered so that
// InRescue can be expressed as a range check, mirroring the teacher's
// int-backed enum idiom (see failsafe.HealthStatus).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitialize
	PhaseAttainAlt
	PhaseRotate
	PhaseFlyHome
	PhaseDescent
	PhaseLanding
	PhaseAbort
	PhaseComplete
	PhaseDoNothing
)

var phaseNames = []string{
	"IDLE",
	"INITIALIZE",
	"ATTAIN_ALT",
	"ROTATE",
	"FLY_HOME",
	"DESCENT",
	"LANDING",
	"ABORT",
	"COMPLETE",
	"DO_NOTHING",
}

func (p Phase) String() string {
	if int(p) >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

// InRescue reports whether the phase lies within the active rescue sequence
// (INITIALIZE through LANDING), gating behavior such as magnetometer disable
// that should only ever apply mid-rescue.
func (p Phase) InRescue() bool {
	return p >= PhaseInitialize && p <= PhaseLanding
}

// Failure is a detected sanity condition.
type Failure int

const (
	FailureHealthy Failure = iota
	FailureFlyaway
	FailureGPSLost
	FailureLowSats
	FailureCrashFlipDetected
	FailureStalled
	FailureTooClose
	FailureNoHomePoint
)

var failureNames = []string{
	"HEALTHY",
	"FLYAWAY",
	"GPSLOST",
	"LOWSATS",
	"CRASH_FLIP_DETECTED",
	"STALLED",
	"TOO_CLOSE",
	"NO_HOME_POINT",
}

func (f Failure) String() string {
	if int(f) >= 0 && int(f) < len(failureNames) {
		return failureNames[f]
	}
	return "UNKNOWN"
}

// SanityMode selects how the watchdog escalates a non-healthy Failure.
type SanityMode int

const (
	SanityOff SanityMode = iota
	SanityOn
	SanityFSOnly
)

var sanityModeNames = []string{"OFF", "ON", "FS_ONLY"}

func (s SanityMode) String() string {
	if int(s) >= 0 && int(s) < len(sanityModeNames) {
		return sanityModeNames[s]
	}
	return "UNKNOWN"
}

// AltitudeMode selects how the return altitude is derived on rescue entry.
type AltitudeMode int

const (
	AltitudeModeMaxAlt AltitudeMode = iota
	AltitudeModeFixedAlt
	AltitudeModeCurrentAlt
)

var altitudeModeNames = []string{"MAX_ALT", "FIXED_ALT", "CURRENT_ALT"}

func (a AltitudeMode) String() string {
	if int(a) >= 0 && int(a) < len(altitudeModeNames) {
		return altitudeModeNames[a]
	}
	return "UNKNOWN"
}

// DisarmReason is passed to the host's ArmingController.Disarm.
type DisarmReason int

const (
	DisarmReasonGPSRescue DisarmReason = iota
)
